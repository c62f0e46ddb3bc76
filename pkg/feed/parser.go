// Package feed decodes the periodic JSON export of the Synapses scheduling
// system into normalized session records, reference-label mappings and
// resolved lecturer identities.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Record is one normalized session record from the export.
type Record struct {
	ID        int64     `json:"id"`
	Module    string    `json:"module"`
	Ue        string    `json:"ue"`
	Lecturers []string  `json:"lecturers"`
	GroupName string    `json:"group_name"`
	Type      string    `json:"type"`
	Salles    string    `json:"salles"`
	DateStart time.Time `json:"date_start"`
	DateEnd   time.Time `json:"date_end"`
}

// Feed is the fully parsed export: session records plus the reference-label
// mappings and lecturer identities derived from them.
type Feed struct {
	Records      []Record
	SessionTypes map[string]string
	Modules      map[string]string
	Ues          map[string]string
	Lecturers    []Identity
}

const timestampLayout = "2006-01-02 15:04:05"

type rawRecord struct {
	ID             *int64              `json:"id"`
	Ue             *string             `json:"ue"`
	IntituleUe     *string             `json:"intitule_ue"`
	Module         *string             `json:"module"`
	IntituleModule *string             `json:"intitule_module"`
	Intervenants   []map[string]string `json:"intervenants"`
	Groupes        *string             `json:"groupes"`
	TypeSynapses   *string             `json:"type_synapses"`
	Libelle        *string             `json:"libelle"`
	Date           *string             `json:"date"`
	Salles         []string            `json:"salles"`
	HeureDeb       *string             `json:"heuredeb"`
	HeureFin       *string             `json:"heurefin"`
}

func (r *rawRecord) requireFields(index int) error {
	required := map[string]bool{
		"id":              r.ID != nil,
		"ue":              r.Ue != nil,
		"intitule_ue":     r.IntituleUe != nil,
		"module":          r.Module != nil,
		"intitule_module": r.IntituleModule != nil,
		"groupes":         r.Groupes != nil,
		"type_synapses":   r.TypeSynapses != nil,
		"libelle":         r.Libelle != nil,
		"date":            r.Date != nil,
		"heuredeb":        r.HeureDeb != nil,
		"heurefin":        r.HeureFin != nil,
	}
	for field, present := range required {
		if !present {
			return fmt.Errorf("%w: record %d is missing field %q", ErrMalformedFeed, index, field)
		}
	}
	return nil
}

// Parse reads a JSON array of session records and returns the normalized
// feed. Labels for session types, modules and UEs are deduplicated on their
// key with the last occurrence in input order winning; an internally
// inconsistent feed is not an error. Lecturer identities are deduplicated on
// the full name+username pair, first occurrence order preserved.
func Parse(r io.Reader) (*Feed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	var raws []rawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of session records: %v", ErrMalformedFeed, err)
	}

	f := &Feed{
		Records:      make([]Record, 0, len(raws)),
		SessionTypes: make(map[string]string),
		Modules:      make(map[string]string),
		Ues:          make(map[string]string),
	}

	seenLecturers := make(map[string]bool)

	for i, raw := range raws {
		if err := raw.requireFields(i); err != nil {
			return nil, err
		}

		dateStart, err := combineDate(*raw.Date, *raw.HeureDeb)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedDate, i, err)
		}
		dateEnd, err := combineDate(*raw.Date, *raw.HeureFin)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedDate, i, err)
		}

		f.SessionTypes[*raw.TypeSynapses] = *raw.Libelle
		f.Modules[*raw.Module] = *raw.IntituleModule
		f.Ues[*raw.Ue] = *raw.IntituleUe

		usernames := make([]string, 0, len(raw.Intervenants))
		for _, entry := range raw.Intervenants {
			identity := ResolveIdentity(entry)
			if identity == nil {
				continue
			}
			usernames = append(usernames, identity.Username)

			for name := range entry {
				key := name + "\x00" + identity.Username
				if !seenLecturers[key] {
					seenLecturers[key] = true
					f.Lecturers = append(f.Lecturers, *identity)
				}
			}
		}

		f.Records = append(f.Records, Record{
			ID:        *raw.ID,
			Module:    *raw.Module,
			Ue:        *raw.Ue,
			Lecturers: usernames,
			GroupName: *raw.Groupes,
			Type:      *raw.TypeSynapses,
			Salles:    strings.Join(raw.Salles, ", "),
			DateStart: dateStart,
			DateEnd:   dateEnd,
		})
	}

	return f, nil
}

func combineDate(date, clock string) (time.Time, error) {
	return time.Parse(timestampLayout, date+" "+clock)
}
