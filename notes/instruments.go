package notes

import "fmt"

// General MIDI instrument families, eight programs each
var gmFamilies = [16]string{
	"piano", "chromatic_percussion", "organ", "guitar",
	"bass", "strings", "ensemble", "brass",
	"reed", "pipe", "synth_lead", "synth_pad",
	"synth_effects", "ethnic", "percussive", "sound_effects",
}

// FamilyName maps a GM program (0-127) to its family
func FamilyName(program int) string {
	if program < 0 || program > 127 {
		return "piano"
	}
	return gmFamilies[program/8]
}

// FamilyProgram returns the first program of a family, 0 when unknown
func FamilyProgram(family string) int {
	for i, f := range gmFamilies {
		if f == family {
			return i * 8
		}
	}
	return 0
}

// PartName builds the stable "<family>__<n>" name of the n-th part of a family
func PartName(family string, n int) string {
	return fmt.Sprintf("%s__%d", family, n)
}
