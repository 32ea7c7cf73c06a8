package steps_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/navigation"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/steps"
)

func TestEveryRegisteredStepHasController(t *testing.T) {
	for _, step := range registry.Default().Steps() {
		c, ok := steps.For(step.ID)
		require.True(t, ok, "missing controller for %s", step.ID)
		assert.Equal(t, step.ID, c.ID)
	}
	assert.Len(t, steps.IDs(), len(registry.Default().Steps()))
}

func TestBranchRulesMatchRegistryEdges(t *testing.T) {
	for _, step := range registry.Default().Steps() {
		c := steps.MustFor(step.ID)
		for _, rule := range c.Branches {
			_, ok := step.Props.Others[rule.Branch]
			assert.True(t, ok, "%s declares rule %s without edge", step.ID, rule.Branch)
		}
		for _, b := range c.Escapes {
			_, ok := step.Props.Others[b]
			assert.True(t, ok, "%s declares escape %s without edge", step.ID, b)
		}
	}
}

func TestHasCovidSymptoms(t *testing.T) {
	tests := []struct {
		selected []string
		want     bool
	}{
		{[]string{"headaches"}, false},
		{[]string{"dryCough"}, true},
		{[]string{}, false},
		{[]string{"vomitingAndDiarrhea", "dryCough"}, true},
		{[]string{"newOrWorseCough", "none"}, true},
	}
	for _, tt := range tests {
		got := steps.HasCovidSymptoms(domain.MultiSelect{Selected: tt.selected})
		assert.Equal(t, tt.want, got, "%v", tt.selected)
	}
}

func TestSymptoms_BranchesOnCovidSymptoms(t *testing.T) {
	c := steps.MustFor(domain.StepQuestionarySymptoms)
	resolver := navigation.NewResolver(registry.Default())

	covid := domain.Fields{"currentSymptoms": map[string]any{"selected": []any{"dryCough"}}}
	require.True(t, c.Check(covid, schema.Snapshot{}).Valid())
	assert.Equal(t, domain.ToBranch(domain.BranchCovidSymptoms), resolver.Choose(c.Branches, covid, schema.Snapshot{}))

	mild := domain.Fields{"currentSymptoms": domain.MultiSelect{Selected: []string{"headaches"}}}
	assert.Equal(t, domain.Forward(), resolver.Choose(c.Branches, mild, schema.Snapshot{}))

	res := c.Check(domain.Fields{}, schema.Snapshot{})
	assert.Equal(t, []string{"currentSymptoms"}, res.Invalid())
}

func TestWelcomeLocale(t *testing.T) {
	c := steps.MustFor(domain.StepWelcomeLocale)
	snap := schema.Snapshot{}

	t.Run("unsupported country", func(t *testing.T) {
		res := c.Check(domain.Fields{"language": "en", "country": "France"}, snap)
		require.Contains(t, res.Errors, "country")
		assert.Equal(t, steps.ErrUnsupportedCountry.Error(), res.Errors["country"].Reason)
	})

	t.Run("region required for countries with states", func(t *testing.T) {
		res := c.Check(domain.Fields{"language": "pt", "country": "Brazil"}, snap)
		assert.Equal(t, []string{"region"}, res.Invalid())
		assert.Equal(t, "regionRequired", res.Errors["region"].Message)

		res = c.Check(domain.Fields{"language": "pt", "country": "Brazil", "region": "Bahia"}, snap)
		assert.True(t, res.Valid())
	})

	t.Run("no region for countries without states", func(t *testing.T) {
		res := c.Check(domain.Fields{"language": "es", "country": "Chile"}, snap)
		assert.True(t, res.Valid())
	})

	t.Run("clinical ids", func(t *testing.T) {
		clinical := schema.Snapshot{Context: map[string]any{domain.ContextClinical: true}}
		res := c.Check(domain.Fields{"language": "es", "country": "Chile"}, clinical)
		assert.Equal(t, []string{"hospitalId", "patientId"}, res.Invalid())
	})

	t.Run("defaults from guess", func(t *testing.T) {
		guess := schema.Snapshot{Context: map[string]any{
			steps.ContextGuessCountry:  "Brazil",
			steps.ContextGuessLanguage: "pt",
		}}
		got := c.Initial(domain.Fields{}, guess)
		assert.Equal(t, domain.Fields{"country": "Brazil", "language": "pt"}, got)

		got = c.Initial(domain.Fields{"country": "Chile"}, guess)
		assert.Equal(t, "Chile", got["country"], "saved answers win over guesses")
	})
}

func TestWelcomePatient(t *testing.T) {
	c := steps.MustFor(domain.StepWelcomePatient)

	assert.True(t, c.Check(domain.Fields{}, schema.Snapshot{}).Valid())
	assert.True(t, c.Check(domain.Fields{"patientId": "1234567"}, schema.Snapshot{}).Valid())
	assert.False(t, c.Check(domain.Fields{"patientId": "12ab"}, schema.Snapshot{}).Valid())

	clinical := schema.Snapshot{Context: map[string]any{domain.ContextClinical: "true"}}
	assert.False(t, c.Check(domain.Fields{}, clinical).Valid())
}

func TestWelcomeConsent_AllTermsRequired(t *testing.T) {
	c := steps.MustFor(domain.StepWelcomeConsent)

	res := c.Check(domain.Fields{"agreedConsentTerms": true, "agreedPolicyTerms": false}, schema.Snapshot{})
	assert.Equal(t, []string{"agreedCovidCollection", "agreedPolicyTerms"}, res.Invalid())

	res = c.Check(domain.Fields{
		"agreedConsentTerms":    true,
		"agreedPolicyTerms":     true,
		"agreedCovidCollection": true,
	}, schema.Snapshot{})
	assert.True(t, res.Valid())
}

func TestQuestionaryTests(t *testing.T) {
	c := steps.MustFor(domain.StepQuestionaryTests)
	now := time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("pcr fields required when pcr taken", func(t *testing.T) {
		res := c.Check(domain.Fields{"testTaken": []string{"pcr"}}, schema.Snapshot{Now: now})
		assert.Equal(t, []string{"pcrTestDate", "pcrTestResult"}, res.Invalid())
	})

	t.Run("pcr taken read from the saved section", func(t *testing.T) {
		snap := schema.Snapshot{Now: now, Answers: domain.Answers{
			domain.SectionSubmitSteps: {"testTaken": []any{"antigen", "pcr"}},
		}}
		res := c.Check(domain.Fields{}, snap)
		assert.Equal(t, []string{"pcrTestDate", "pcrTestResult"}, res.Invalid())
	})

	t.Run("optional without pcr", func(t *testing.T) {
		res := c.Check(domain.Fields{"testTaken": []string{"antigen"}}, schema.Snapshot{Now: now})
		assert.True(t, res.Valid())
	})

	t.Run("unsure result accepted", func(t *testing.T) {
		res := c.Check(domain.Fields{
			"testTaken":     []string{"pcr"},
			"pcrTestDate":   "2021-03-01",
			"pcrTestResult": "unsure",
		}, schema.Snapshot{Now: now})
		assert.True(t, res.Valid(), res.Invalid())
	})

	t.Run("future date rejected", func(t *testing.T) {
		res := c.Check(domain.Fields{
			"testTaken":     []string{"pcr"},
			"pcrTestDate":   "2021-03-11",
			"pcrTestResult": "negative",
		}, schema.Snapshot{Now: now})
		assert.Equal(t, []string{"pcrTestDate"}, res.Invalid())
	})

	t.Run("defaults", func(t *testing.T) {
		snap := schema.Snapshot{Now: now, Answers: domain.Answers{
			domain.SectionWelcome: {"pcrTestResult": "true"},
		}}
		got := c.Initial(domain.Fields{}, snap)
		assert.Equal(t, "positive", got["pcrTestResult"])
		assert.Equal(t, "2021-03-10", got["pcrTestDate"])

		snap.Answers[domain.SectionWelcome]["pcrTestResult"] = false
		got = c.Initial(domain.Fields{}, snap)
		assert.Equal(t, "negative", got["pcrTestResult"])
	})
}

func TestRecordingSteps(t *testing.T) {
	record := steps.MustFor(domain.StepRecordBreath)
	require.NotNil(t, record.Recording)
	assert.True(t, record.Escapable(domain.BranchManualUpload))
	assert.False(t, record.Escapable(domain.BranchShortAudio))

	commit := record.Commit(domain.Fields{steps.FieldRecordingFile: "att-1", "ignored": "x"})
	assert.Equal(t, domain.Fields{
		"recordYourBreath": map[string]any{steps.FieldRecordingFile: "att-1"},
	}, commit)

	section := domain.Fields{"recordYourBreath": map[string]any{steps.FieldRecordingFile: "att-1"}}
	assert.Equal(t, domain.Fields{steps.FieldRecordingFile: "att-1"}, record.Initial(section, schema.Snapshot{}))

	upload := steps.MustFor(domain.StepUploadBreath)
	assert.Equal(t, domain.Fields{
		"recordYourBreath": map[string]any{steps.FieldUploadedFile: "att-2"},
	}, upload.Commit(domain.Fields{steps.FieldUploadedFile: "att-2"}))
}

func TestListen_ShortAudio(t *testing.T) {
	c := steps.MustFor(domain.StepListenCough)
	resolver := navigation.NewResolver(registry.Default())
	key := steps.AudioSizeKey(registry.KindCough)

	short := schema.Snapshot{Context: map[string]any{key: 100}}
	assert.Equal(t, domain.ToBranch(domain.BranchShortAudio), resolver.Choose(c.Branches, nil, short))

	missing := schema.Snapshot{}
	assert.Equal(t, domain.ToBranch(domain.BranchShortAudio), resolver.Choose(c.Branches, nil, missing))

	long := schema.Snapshot{Context: map[string]any{key: steps.MinAudioBytes}}
	assert.Equal(t, domain.Forward(), resolver.Choose(c.Branches, nil, long))

	assert.Nil(t, c.Commit(domain.Fields{"anything": 1}))
}

func TestCommit_FiltersToSchema(t *testing.T) {
	c := steps.MustFor(domain.StepQuestionaryVaccine)
	got := c.Commit(domain.Fields{"vaccine": "two", "smokeLastSixMonths": "true"})
	assert.Equal(t, domain.Fields{"vaccine": "two"}, got)

	info := steps.MustFor(domain.StepWelcomeAbout)
	assert.Nil(t, info.Commit(domain.Fields{"x": 1}))
}
