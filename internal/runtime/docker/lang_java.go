package docker

import "fmt"

func newJavaStrategy() languageStrategy {
	return &compiledStrategy{
		compile: compileSpec{
			sourceFilename:   javaSourceFilename,
			buildCmd:         []string{"sh", "-c", fmt.Sprintf("javac %s && jar cfe %s Main *.class", javaSourceFilename, javaArchiveFilename)},
			artifactFilename: javaArchiveFilename,
		},
		runCmd:       []string{"java", "-jar", javaArchiveFilename},
		artifactMode: 0o644,
	}
}
