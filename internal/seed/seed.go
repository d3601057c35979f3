// Package seed installs the built-in lesson checklist catalog on first run.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/heilo27/rightrudder/internal/app/models"
	appRepos "github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/idmap"
)

// builtinTemplate describes one catalog entry. Item order here defines the
// display order, and through it which fixed item id each line receives.
type builtinTemplate struct {
	identifier string
	name       string
	category   string
	phase      string
	items      []string
}

// The shipped private pilot catalog. Item counts must match the fixed id
// table; installs with mismatched counts fall back to generated ids and the
// integrity service reports the drift.
var builtinCatalog = []builtinTemplate{
	{
		identifier: "pp-first-flight",
		name:       "First Flight",
		category:   "Private Pilot",
		phase:      "Pre-Solo",
		items: []string{
			"Cockpit familiarization and controls",
			"Engine start and taxi procedures",
			"Straight and level flight",
			"Medium bank turns",
			"Climbs and descents",
		},
	},
	{
		identifier: "pp-preflight-ops",
		name:       "Preflight Operations",
		category:   "Private Pilot",
		phase:      "Pre-Solo",
		items: []string{
			"Weather briefing and go/no-go decision",
			"Aircraft documents and airworthiness",
			"Exterior walkaround inspection",
			"Fuel quantity and quality check",
			"Weight and balance computation",
			"Passenger briefing",
		},
	},
	{
		identifier: "pp-slow-flight-stalls",
		name:       "Slow Flight and Stalls",
		category:   "Private Pilot",
		phase:      "Pre-Solo",
		items: []string{
			"Flight at minimum controllable airspeed",
			"Power-off stall recognition and recovery",
			"Power-on stall recognition and recovery",
			"Spin awareness",
		},
	},
	{
		identifier: "pp-ground-reference",
		name:       "Ground Reference Maneuvers",
		category:   "Private Pilot",
		phase:      "Pre-Solo",
		items: []string{
			"Rectangular course",
			"S-turns across a road",
			"Turns around a point",
			"Wind drift correction",
		},
	},
	{
		identifier: "pp-first-solo",
		name:       "First Solo",
		category:   "Private Pilot",
		phase:      "Solo",
		items: []string{
			"Pre-solo written exam",
			"Three takeoffs and landings to a full stop",
			"Traffic pattern procedures",
			"Go-around procedures",
			"Radio communications",
		},
	},
	{
		identifier: "pp-cross-country",
		name:       "Cross-Country Flying",
		category:   "Private Pilot",
		phase:      "Cross-Country",
		items: []string{
			"Flight planning and navigation log",
			"Pilotage and dead reckoning",
			"VOR and GPS navigation",
			"Diversion to an alternate",
			"Lost procedures",
			"Fuel management",
			"Airspace and flight following",
		},
	},
	{
		identifier: "pp-night-flying",
		name:       "Night Flying",
		category:   "Private Pilot",
		phase:      "Cross-Country",
		items: []string{
			"Night physiology and vision",
			"Aircraft lighting and equipment",
			"Night takeoffs and landings",
			"Night navigation",
			"Emergency procedures at night",
		},
	},
	{
		identifier: "pp-checkride-prep",
		name:       "Checkride Preparation",
		category:   "Private Pilot",
		phase:      "Checkride",
		items: []string{
			"Oral exam review",
			"Performance maneuvers to ACS standards",
			"Emergency approach and landing",
			"Short and soft field takeoffs and landings",
			"Mock checkride flight",
			"Logbook endorsements review",
		},
	},
}

// CreateDefaultData seeds the built-in template catalog if it is missing.
// Template and item ids come from the fixed mapping table so every install
// materializes identical rows.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, mapper *idmap.Mapper, lgr zerolog.Logger) error {
	templateRepo := appRepos.NewTemplateRepository(dbPool)

	lgr.Info().Msg("Checking/Creating built-in template catalog...")
	var finalErr error

	for _, entry := range builtinCatalog {
		_, err := templateRepo.GetByIdentifier(ctx, entry.identifier)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrTemplateNotFound) {
			lgr.Error().Err(err).Str("identifier", entry.identifier).Msg("Error checking built-in template")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		template, buildErr := buildTemplate(entry, mapper)
		if buildErr != nil {
			lgr.Error().Err(buildErr).Str("identifier", entry.identifier).Msg("Error building built-in template")
			finalErr = errors.Join(finalErr, buildErr)
			continue
		}

		if err := templateRepo.Create(ctx, template); err != nil {
			lgr.Error().Err(err).Str("identifier", entry.identifier).Msg("Error creating built-in template")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Info().Str("identifier", entry.identifier).Str("name", entry.name).Msg("Seeded built-in template")
	}

	return finalErr
}

func buildTemplate(entry builtinTemplate, mapper *idmap.Mapper) (*appModels.Template, error) {
	templateID, ok := mapper.TemplateID(entry.identifier)
	if !ok {
		return nil, apperrors.ErrMappingNotFound
	}
	itemIDs, ok := mapper.ItemIDs(entry.identifier)
	if !ok || len(itemIDs) != len(entry.items) {
		return nil, apperrors.ErrMappingNotFound
	}

	now := time.Now().UTC()
	template := &appModels.Template{
		ID:                 templateID,
		Name:               entry.name,
		Category:           entry.category,
		Phase:              entry.phase,
		TemplateIdentifier: entry.identifier,
		CreatedAt:          now,
		LastModified:       now,
	}
	for i, title := range entry.items {
		template.Items = append(template.Items, appModels.TemplateItem{
			ID:           itemIDs[i],
			TemplateID:   templateID,
			Title:        title,
			DisplayOrder: i,
		})
	}
	template.ContentHash = template.ComputeContentHash()
	return template, nil
}
