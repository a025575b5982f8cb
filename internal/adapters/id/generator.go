package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateSiteID() string {
	return g.generate("sws")
}

func (g *Generator) GeneratePageID() string {
	return g.generate("swp")
}

func (g *Generator) GenerateScreenshotID() string {
	return g.generate("swsh")
}

func (g *Generator) GenerateScreenshotErrorID() string {
	return g.generate("swe")
}

func (g *Generator) GenerateInstructionID() string {
	return g.generate("swi")
}

func (g *Generator) GenerateTestID() string {
	return g.generate("swt")
}

func (g *Generator) GenerateTestResultID() string {
	return g.generate("swr")
}

func (g *Generator) GenerateCaptureJobID() string {
	return g.generate("swj")
}

func (g *Generator) GenerateUserSettingsID() string {
	return g.generate("swus")
}

func (g *Generator) GenerateRequestID() string {
	return g.generate("swreq")
}
