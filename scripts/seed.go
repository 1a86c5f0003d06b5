package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/carebook/carebook/backend/internal/adapters/database"
	"github.com/carebook/carebook/backend/internal/adapters/search"
	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/typesense"
	"github.com/carebook/carebook/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	var searchRepo *search.TypesenseAdapter
	if err == nil {
		if err := tsClient.InitSchema(context.Background()); err == nil {
			searchRepo = search.NewTypesenseAdapter(tsClient)
		}
	}

	ctx := context.Background()
	db := pgClient.DB()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := db.ExecContext(ctx, `
			TRUNCATE TABLE
				availability_cache,
				appointments,
				availability_exceptions,
				availability_templates,
				supervision_relationships,
				provider_payer_contracts,
				service_instances,
				providers,
				payers
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now()
	effectiveDate := now.AddDate(-1, 0, 0)

	// 1. Seed payers, including the self-pay pseudo-payer
	payers := []entities.Payer{
		{ID: uuid.New().String(), Name: "Aetna Commercial PPO", Type: entities.PayerTypeCommercial, State: "NY", StatusCode: "active"},
		{ID: uuid.New().String(), Name: "Empire BlueCross HMO", Type: entities.PayerTypeCommercial, State: "NY", StatusCode: "active"},
		{ID: uuid.New().String(), Name: "NY Medicaid", Type: entities.PayerTypeMedicaid, State: "NY", StatusCode: "active"},
		{ID: uuid.New().String(), Name: "Self-Pay", Type: entities.PayerTypeSelfPay, State: "", StatusCode: "active"},
	}
	for _, p := range payers {
		_, err := db.ExecContext(ctx,
			`INSERT INTO payers (id, name, type, state, status_code, effective_date, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Type, p.State, p.StatusCode, effectiveDate,
		)
		if err != nil {
			log.Printf("Failed to create payer %s: %v", p.Name, err)
		}
	}

	// 2. Seed providers: two attendings plus a supervised NP
	providers := []entities.Provider{
		{
			ID: uuid.New().String(), NPI: "1234567890",
			FirstName: "Alice", LastName: "Okafor", Credentials: "MD",
			Languages: []string{"en", "ig"}, Timezone: "America/New_York",
			Active: true, Bookable: true, AcceptsNewPatients: true, Telehealth: true,
		},
		{
			ID: uuid.New().String(), NPI: "1234567891",
			FirstName: "Brian", LastName: "Castillo", Credentials: "MD",
			Languages: []string{"en", "es"}, Timezone: "America/New_York",
			Active: true, Bookable: true, AcceptsNewPatients: true, Telehealth: false,
		},
		{
			ID: uuid.New().String(), NPI: "1234567892",
			FirstName: "Chioma", LastName: "Nwosu", Credentials: "NP",
			Languages: []string{"en"}, Timezone: "America/Chicago",
			Active: true, Bookable: true, AcceptsNewPatients: true, Telehealth: true,
		},
	}
	for _, p := range providers {
		_, err := db.ExecContext(ctx,
			`INSERT INTO providers (id, npi, first_name, last_name, credentials, languages, timezone,
			                        active, bookable, accepts_new_patients, telehealth, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, p.NPI, p.FirstName, p.LastName, p.Credentials, pq.Array(p.Languages), p.Timezone,
			p.Active, p.Bookable, p.AcceptsNewPatients, p.Telehealth,
		)
		if err != nil {
			log.Printf("Failed to create provider %s %s: %v", p.FirstName, p.LastName, err)
		}
	}

	// 3. Direct contracts for the two attendings under the commercial payers,
	// and a supervision relationship putting the NP under the first attending
	for _, payer := range payers[:3] {
		for _, attending := range providers[:2] {
			_, err := db.ExecContext(ctx,
				`INSERT INTO provider_payer_contracts
				   (id, provider_id, payer_id, status, effective_date, billing_provider_id, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
				 ON CONFLICT (id) DO NOTHING`,
				uuid.New().String(), attending.ID, payer.ID, entities.ContractStatusInNetwork, effectiveDate, attending.ID,
			)
			if err != nil {
				log.Printf("Failed to create contract for %s under %s: %v", attending.LastName, payer.Name, err)
			}
		}
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO supervision_relationships
		   (id, supervised_provider_id, attending_provider_id, level, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, true, NOW(), NOW())
		 ON CONFLICT (id) DO NOTHING`,
		uuid.New().String(), providers[2].ID, providers[0].ID, entities.SupervisionLevelSignOffOnly,
	)
	if err != nil {
		log.Printf("Failed to create supervision relationship: %v", err)
	}

	// 4. Service instances per payer
	for _, payer := range payers {
		for _, duration := range []int{30, 60} {
			_, err := db.ExecContext(ctx,
				`INSERT INTO service_instances (id, payer_id, name, duration_minutes, telehealth, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
				 ON CONFLICT (id) DO NOTHING`,
				uuid.New().String(), payer.ID, "Office Visit", duration, duration == 30,
			)
			if err != nil {
				log.Printf("Failed to create service instance under %s: %v", payer.Name, err)
			}
		}
	}

	// 5. Weekly templates through the availability adapter, plus one blackout
	availabilityRepo := database.NewAvailabilityAdapter(pgClient)
	for _, p := range providers {
		for day := 1; day <= 5; day++ { // Monday through Friday
			template := &entities.AvailabilityTemplate{
				ID:          uuid.New().String(),
				ProviderID:  p.ID,
				DayOfWeek:   day,
				StartTime:   "09:00",
				EndTime:     "17:00",
				IsRecurring: true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := availabilityRepo.CreateTemplate(ctx, template); err != nil {
				log.Printf("Failed to create template for %s: %v", p.LastName, err)
			}
		}
	}
	blackout := &entities.AvailabilityException{
		ID:         uuid.New().String(),
		ProviderID: providers[0].ID,
		Date:       now.AddDate(0, 0, 7).Truncate(24 * time.Hour),
		Blackout:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := availabilityRepo.UpsertException(ctx, blackout); err != nil {
		log.Printf("Failed to create blackout exception: %v", err)
	}

	// 6. Push providers into the search index when Typesense is reachable
	if searchRepo != nil {
		indexable := make([]*entities.Provider, 0, len(providers))
		for i := range providers {
			indexable = append(indexable, &providers[i])
		}
		if err := searchRepo.IndexProviders(ctx, indexable); err != nil {
			log.Printf("Failed to index providers: %v", err)
		}
	}

	log.Printf("Seeding completed: %d payers, %d providers", len(payers), len(providers))
}
