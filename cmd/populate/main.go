package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebook/carebook/backend/internal/adapters/database"
	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	"github.com/carebook/carebook/backend/pkg/config"
)

// Batch population job: recomputes the availability cache for every bookable
// provider across the rolling horizon. Run from cron or on demand.
func main() {
	var horizonFlag int
	var intervalFlag string
	flag.IntVar(&horizonFlag, "horizon", 0, "number of days ahead to populate (defaults to AVAILABILITY_HORIZON_DAYS)")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for population (e.g. 1h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	horizon := cfg.Availability.HorizonDays
	if horizonFlag > 0 {
		horizon = horizonFlag
	}

	var interval time.Duration
	if intervalFlag != "" {
		interval, err = time.ParseDuration(intervalFlag)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalFlag, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := populateOnce(ctx, cfg, horizon); err != nil {
			log.Printf("Population run failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		log.Printf("Population complete. Next run in %s.", interval)
		select {
		case <-ctx.Done():
			log.Println("Population job shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func populateOnce(ctx context.Context, cfg *config.Config, horizon int) error {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	contractAdapter := database.NewContractAdapter(pgClient)
	providerAdapter := database.NewProviderAdapter(pgClient)
	payerAdapter := database.NewPayerAdapter(pgClient)
	instanceAdapter := database.NewServiceInstanceAdapter(pgClient)
	availabilityAdapter := database.NewAvailabilityAdapter(pgClient)
	slotCacheAdapter := database.NewSlotCacheAdapter(pgClient)
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)

	bookabilityService := services.NewBookabilityService(contractAdapter, providerAdapter, payerAdapter)
	availabilityService := services.NewAvailabilityCacheService(
		slotCacheAdapter,
		availabilityAdapter,
		appointmentAdapter,
		instanceAdapter,
		providerAdapter,
		payerAdapter,
		bookabilityService,
		services.NewSlotGeneratorService(),
		nil,
		nil,
		cfg.Availability.PopulateWorkers,
	)

	start := time.Now()
	log.Printf("Populating availability cache for the next %d days...", horizon)

	written, err := availabilityService.PopulateAll(ctx, horizon)
	if err != nil {
		log.Printf("Population finished with errors after %s: %d entries written", time.Since(start).Round(time.Millisecond), written)
		return err
	}

	log.Printf("Population finished in %s: %d entries written", time.Since(start).Round(time.Millisecond), written)
	return nil
}
