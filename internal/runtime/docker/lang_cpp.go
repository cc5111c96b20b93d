package docker

func newCPPStrategy() languageStrategy {
	return &compiledStrategy{
		compile: compileSpec{
			sourceFilename: cppSourceFilename,
			// Static linking lets the binary run in a base image without
			// libstdc++.
			buildCmd:         []string{"g++", "-O2", "-std=c++17", "-static", "-o", binaryFilename, cppSourceFilename},
			artifactFilename: binaryFilename,
		},
		runCmd:       []string{"./" + binaryFilename},
		artifactMode: 0o755,
	}
}
