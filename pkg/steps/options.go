package steps

import (
	"github.com/aretw0/intake/pkg/domain"
)

// Answer options offered by the questionary.
var (
	TestOptions = []string{"pcr", "antigen", "antibody", "none"}

	TestResultOptions = []string{"positive", "negative", "unsure"}

	SymptomOptions = []string{
		"none",
		"bodyAches",
		"dryCough",
		"wetCough",
		"feverChillsSweating",
		"headaches",
		"lossTasteAndOrSmell",
		"newOrWorseCough",
		"runnyNose",
		"breathShortness",
		"soreThroat",
		"chestTightness",
		"vomitingAndDiarrhea",
		"weakness",
		"other",
	}

	VaccineOptions = []string{"one", "two", "three", "four", "false", "decline"}

	SmokeOptions = []string{"true", "false"}

	BiologicalSexOptions = []string{"male", "female", "other"}

	AgeGroupOptions = []string{"0-19", "20-29", "30-39", "40-49", "50-59", "60-69", "70-79", "80-89", "90-99", "100-"}

	MedicalConditionOptions = []string{
		"none",
		"asthma",
		"bronchitis",
		"copd",
		"cysticFibrosis",
		"diabetes",
		"emphysema",
		"heartDisease",
		"hypertension",
		"pulmonaryFibrosis",
		"pneumonia",
		"other",
	}
)

// covidSymptoms are the symptoms that open the symptom-onset question.
var covidSymptoms = map[string]struct{}{
	"breathShortness":     {},
	"feverChillsSweating": {},
	"dryCough":            {},
	"wetCough":            {},
	"newOrWorseCough":     {},
}

// HasCovidSymptoms reports whether any selected symptom is COVID-indicative.
// Order and duplicates do not matter.
func HasCovidSymptoms(ms domain.MultiSelect) bool {
	for _, s := range ms.Selected {
		if _, ok := covidSymptoms[s]; ok {
			return true
		}
	}
	return false
}
