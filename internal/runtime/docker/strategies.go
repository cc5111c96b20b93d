package docker

import (
	"fmt"

	"arbiter/internal/domain/execution"
)

const (
	pythonSourceFilename = "main.py"
	goSourceFilename     = "main.go"
	cppSourceFilename    = "main.cpp"
	javaSourceFilename   = "Main.java"
	binaryFilename       = "program"
	javaArchiveFilename  = "program.jar"
)

func strategyForLanguage(lang execution.Language) (languageStrategy, error) {
	switch lang {
	case execution.LanguagePython:
		return &pythonStrategy{}, nil
	case execution.LanguageGo:
		return newGoStrategy(), nil
	case execution.LanguageCPP:
		return newCPPStrategy(), nil
	case execution.LanguageJava:
		return newJavaStrategy(), nil
	default:
		return nil, fmt.Errorf("docker runtime: no strategy registered for language %q", lang)
	}
}
