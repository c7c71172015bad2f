package main

import (
	"context"
	"flag"

	activityrepo "contactpulse_backend/internal/activity/repository"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/internal/status"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/db"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contactRef struct {
	id    uuid.UUID
	orgID uuid.UUID
}

// status-replay re-derives every contact's status history from the event
// log and reports contacts whose stored history has drifted. With -repair
// the stored history is replaced by the derivation.
func main() {
	repair := flag.Bool("repair", false, "replace drifted histories with the derived one")
	contactFlag := flag.String("contact", "", "limit the audit to a single contact id")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting status replay audit", "repair", *repair)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	statusModule := status.NewModule(pool, eventBus, validator.New(), cfg, log, activityrepo.New(pool))
	svc := statusModule.Service()

	var contacts []contactRef
	if *contactFlag != "" {
		contacts, err = lookupContact(ctx, pool, *contactFlag)
	} else {
		contacts, err = listContacts(ctx, pool)
	}
	if err != nil {
		log.Error("failed to list contacts", "error", err)
		panic("failed to list contacts: " + err.Error())
	}

	var drifted, repaired, failed int
	for _, c := range contacts {
		changed, err := svc.Recompute(ctx, c.id, c.orgID, *repair)
		if err != nil {
			log.Error("recompute failed", "contactId", c.id, "error", err)
			failed++
			continue
		}
		if changed {
			drifted++
			if *repair {
				repaired++
				log.Info("history repaired", "contactId", c.id, "organizationId", c.orgID)
			} else {
				log.Warn("history drifted", "contactId", c.id, "organizationId", c.orgID)
			}
		}
	}

	log.Info("status replay audit complete",
		"contacts", len(contacts),
		"drifted", drifted,
		"repaired", repaired,
		"failed", failed,
	)
}

func lookupContact(ctx context.Context, pool *pgxpool.Pool, raw string) ([]contactRef, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}

	var ref contactRef
	err = pool.QueryRow(ctx, `
		SELECT id, organization_id
		FROM contacts
		WHERE id = $1
	`, id).Scan(&ref.id, &ref.orgID)
	if err != nil {
		return nil, err
	}
	return []contactRef{ref}, nil
}

func listContacts(ctx context.Context, pool *pgxpool.Pool) ([]contactRef, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, organization_id
		FROM contacts
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]contactRef, 0)
	for rows.Next() {
		var ref contactRef
		if err := rows.Scan(&ref.id, &ref.orgID); err != nil {
			return nil, err
		}
		contacts = append(contacts, ref)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return contacts, nil
}
