package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `[
	{
		"id": 101,
		"ue": "UE11",
		"intitule_ue": "Mathematiques",
		"module": "M111",
		"intitule_module": "Analyse",
		"intervenants": [{"FERTIER Audrey": "afertier"}],
		"groupes": "G1",
		"type_synapses": "CM",
		"libelle": "Cours magistral",
		"date": "2026-09-14",
		"salles": ["B203", "B204"],
		"heuredeb": "08:00:00",
		"heurefin": "10:00:00"
	},
	{
		"id": 102,
		"ue": "UE11",
		"intitule_ue": "Mathematiques",
		"module": "M111",
		"intitule_module": "Analyse reelle",
		"intervenants": [{"FERTIER Audrey": "afertier"}, {"DUPONT Jean": "jdupont"}],
		"groupes": "G2",
		"type_synapses": "TD",
		"libelle": "Travaux diriges",
		"date": "2026-09-15",
		"salles": [],
		"heuredeb": "14:00:00",
		"heurefin": "15:30:00"
	}
]`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, f.Records, 2)

	t.Run("normalizes records", func(t *testing.T) {
		r := f.Records[0]
		assert.Equal(t, int64(101), r.ID)
		assert.Equal(t, "M111", r.Module)
		assert.Equal(t, "UE11", r.Ue)
		assert.Equal(t, []string{"afertier"}, r.Lecturers)
		assert.Equal(t, "G1", r.GroupName)
		assert.Equal(t, "CM", r.Type)
		assert.Equal(t, "B203, B204", r.Salles)
		assert.Equal(t, time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC), r.DateStart)
		assert.Equal(t, time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC), r.DateEnd)
	})

	t.Run("empty salles joins to empty string", func(t *testing.T) {
		assert.Equal(t, "", f.Records[1].Salles)
	})

	t.Run("builds label mappings with last occurrence winning", func(t *testing.T) {
		assert.Equal(t, map[string]string{"CM": "Cours magistral", "TD": "Travaux diriges"}, f.SessionTypes)
		assert.Equal(t, map[string]string{"M111": "Analyse reelle"}, f.Modules)
		assert.Equal(t, map[string]string{"UE11": "Mathematiques"}, f.Ues)
	})

	t.Run("deduplicates lecturers in first occurrence order", func(t *testing.T) {
		require.Len(t, f.Lecturers, 2)
		assert.Equal(t, Identity{Surname: "FERTIER", Firstname: "Audrey", Username: "afertier"}, f.Lecturers[0])
		assert.Equal(t, Identity{Surname: "DUPONT", Firstname: "Jean", Username: "jdupont"}, f.Lecturers[1])
	})
}

func TestParse_NotAnArray(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"id": 1}`))
	assert.ErrorIs(t, err, ErrMalformedFeed)
}

func TestParse_MissingRequiredField(t *testing.T) {
	export := `[{
		"id": 101,
		"ue": "UE11",
		"intitule_ue": "Mathematiques",
		"module": "M111",
		"intitule_module": "Analyse",
		"intervenants": [],
		"groupes": "G1",
		"type_synapses": "CM",
		"libelle": "Cours magistral",
		"salles": [],
		"heuredeb": "08:00:00",
		"heurefin": "10:00:00"
	}]`

	_, err := Parse(strings.NewReader(export))
	require.ErrorIs(t, err, ErrMalformedFeed)
	assert.Contains(t, err.Error(), `"date"`)
}

func TestParse_MalformedDate(t *testing.T) {
	export := `[{
		"id": 101,
		"ue": "UE11",
		"intitule_ue": "Mathematiques",
		"module": "M111",
		"intitule_module": "Analyse",
		"intervenants": [],
		"groupes": "G1",
		"type_synapses": "CM",
		"libelle": "Cours magistral",
		"date": "14/09/2026",
		"salles": [],
		"heuredeb": "08:00:00",
		"heurefin": "10:00:00"
	}]`

	_, err := Parse(strings.NewReader(export))
	assert.ErrorIs(t, err, ErrMalformedDate)
}

func TestParse_NullIntervenantsAndSalles(t *testing.T) {
	export := `[{
		"id": 101,
		"ue": "UE11",
		"intitule_ue": "Mathematiques",
		"module": "M111",
		"intitule_module": "Analyse",
		"intervenants": null,
		"groupes": "G1",
		"type_synapses": "CM",
		"libelle": "Cours magistral",
		"date": "2026-09-14",
		"salles": null,
		"heuredeb": "08:00:00",
		"heurefin": "10:00:00"
	}]`

	f, err := Parse(strings.NewReader(export))
	require.NoError(t, err)
	require.Len(t, f.Records, 1)
	assert.Empty(t, f.Records[0].Lecturers)
	assert.Equal(t, "", f.Records[0].Salles)
	assert.Empty(t, f.Lecturers)
}
