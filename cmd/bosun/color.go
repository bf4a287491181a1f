package main

import (
	"io"
	"os"

	"golang.org/x/term"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
)

// palette colors status words when output goes to a terminal.
type palette struct {
	enabled bool
}

// paletteFor enables color only when out is a terminal and NO_COLOR is unset.
func paletteFor(out io.Writer) palette {
	f, ok := out.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return palette{}
	}
	return palette{enabled: term.IsTerminal(int(f.Fd()))}
}

func (p palette) wrap(code, s string) string {
	if !p.enabled {
		return s
	}
	return code + s + ansiReset
}

func (p palette) red(s string) string    { return p.wrap(ansiRed, s) }
func (p palette) yellow(s string) string { return p.wrap(ansiYellow, s) }
func (p palette) green(s string) string  { return p.wrap(ansiGreen, s) }
