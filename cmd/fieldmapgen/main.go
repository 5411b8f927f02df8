package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/halo"
)

// zendeskExport is the shape of a Zendesk ticket-fields export
// (GET /api/v2/ticket_fields.json saved to a file).
type zendeskExport struct {
	TicketFields []zendeskField `json:"ticket_fields"`
}

type zendeskField struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Removable          bool            `json:"removable"`
	CustomFieldOptions []zendeskOption `json:"custom_field_options"`
}

type zendeskOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func main() {
	zendeskPath := flag.String("zendesk", "", "path to Zendesk ticket_fields export JSON")
	haloPath := flag.String("halo", "", "path to Halo FieldInfo snapshot JSON")
	outPath := flag.String("out", "fieldmap.json", "output path for the field map table")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339

	if *zendeskPath == "" || *haloPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	entries, err := build(*zendeskPath, *haloPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("field map generation failed")
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("encode field map")
	}
	if err := os.WriteFile(*outPath, append(out, '\n'), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write field map")
	}

	mapped := 0
	for _, e := range entries {
		if e.HaloID != nil {
			mapped++
		}
	}
	logger.Info().
		Int("fields", len(entries)).
		Int("mapped", mapped).
		Str("out", *outPath).
		Msg("field map written")
}

// build joins the two snapshots by field title, case-insensitively. Zendesk
// fields with no Halo counterpart are kept with a null halo_id so the
// transformation layer can flag them instead of silently dropping data.
func build(zendeskPath, haloPath string) ([]fieldmap.Entry, error) {
	var export zendeskExport
	if err := readJSON(zendeskPath, &export); err != nil {
		return nil, err
	}
	var haloFields []halo.FieldInfo
	if err := readJSON(haloPath, &haloFields); err != nil {
		return nil, err
	}

	byTitle := make(map[string]halo.FieldInfo, len(haloFields))
	for _, f := range haloFields {
		title := f.Label
		if title == "" {
			title = f.Name
		}
		byTitle[normalize(title)] = f
	}

	entries := make([]fieldmap.Entry, 0, len(export.TicketFields))
	for _, zf := range export.TicketFields {
		entry := fieldmap.Entry{
			ZendeskID:            zf.ID,
			ZendeskTitle:         zf.Title,
			IsZendeskCustomField: zf.Removable,
		}
		if hf, ok := byTitle[normalize(zf.Title)]; ok {
			id := hf.ID
			entry.HaloID = &id
			entry.HaloTitle = hf.Name
			entry.ValueMappings = joinValues(zf.CustomFieldOptions, hf.Values)
		} else {
			entry.SpecialTreatment = true
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// joinValues maps each Zendesk option tag to the Halo value id whose name
// matches the option's display name.
func joinValues(options []zendeskOption, values []halo.FieldInfoValue) map[string]int64 {
	if len(options) == 0 || len(values) == 0 {
		return nil
	}
	byName := make(map[string]int64, len(values))
	for _, v := range values {
		byName[normalize(v.Name)] = v.ID
	}
	mappings := make(map[string]int64)
	for _, opt := range options {
		if id, ok := byName[normalize(opt.Name)]; ok {
			mappings[opt.Value] = id
		}
	}
	if len(mappings) == 0 {
		return nil
	}
	return mappings
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
