package docker

func newGoStrategy() languageStrategy {
	return &compiledStrategy{
		compile: compileSpec{
			sourceFilename:   goSourceFilename,
			buildCmd:         []string{"go", "build", "-o", binaryFilename, goSourceFilename},
			artifactFilename: binaryFilename,
		},
		runCmd:       []string{"./" + binaryFilename},
		artifactMode: 0o755,
	}
}
