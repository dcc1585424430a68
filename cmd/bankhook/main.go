package main

import (
	"context"
	"os"

	"bankhook/internal/api"
	"bankhook/internal/audit"
	"bankhook/internal/backends"
	"bankhook/internal/gate"
	"bankhook/internal/ports"
	"bankhook/internal/process"
	"bankhook/internal/pub"
	"bankhook/internal/types"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	settings, err := types.LoadSettings()
	if err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}
	log.Infof("settings: %s", settings)

	ctx := context.Background()

	filter := gate.NewNetFilter(settings.AllowedNetworks)
	limiter := gate.NewLimiter(backends.RateCounterFromEnv(), settings.RateLimitRequests, settings.RateWindow())

	// A missing key is a hard but non-crashing condition: the gateway
	// stays up and every signature check fails closed.
	verifier, err := gate.NewVerifierFromFile(settings.BankPublicKeyFile)
	if err != nil {
		log.WithError(err).Error("starting without a usable bank public key")
	}

	dedup, err := backends.DedupBackendFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize dedup store: %v", err)
	}

	processor := process.NewProcessor(dedup, process.DefaultApply, settings.DedupRetention(), settings.StoreTimeout())
	if settings.ForwardSNSArn != "" {
		processor.WithForwarding(snsPublisher(ctx), settings.ForwardSNSArn)
	}
	if err := processor.Warm(ctx); err != nil {
		log.WithError(err).Warn("dedup cache warm-up failed, relying on persistent index only")
	}

	trail := audit.NewTrail(settings.AuditFields, backends.ArchiveFromEnv(settings.DedupRetention()))

	h := api.NewHandler(filter, limiter, verifier, processor, dedup, trail)
	api.RunServer(settings.Port, h)
}

func snsPublisher(ctx context.Context) ports.Publisher {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return pub.NewSNS(sns.NewFromConfig(awsCfg))
}
