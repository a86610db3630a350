package main

import (
	"context"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	inputhttp "lumina-core/internal/adapters/input/http"
	"lumina-core/internal/adapters/output/dynamo"
	"lumina-core/internal/adapters/output/persistence"
	"lumina-core/internal/adapters/output/wled"
	"lumina-core/internal/domain/service"
	"lumina-core/internal/metrics"
)

func main() {
	configPath := "/etc/lumina/bridge.yaml"
	if os.Getenv("CONFIG_PATH") != "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	configRepo := persistence.NewYAMLConfigRepository(configPath)
	cfg, err := configRepo.Get(context.Background())
	if err != nil {
		log.Fatalf("load config %s: %v", configPath, err)
	}

	// Env vars override the file so container deployments need no
	// config volume.
	if v := os.Getenv("DEVICE_HOST"); v != "" {
		cfg.DeviceHost = v
	}
	if v := os.Getenv("CONTROLLER_ID"); v != "" {
		cfg.ControllerID = v
	}
	if v := os.Getenv("COMMANDS_TABLE"); v != "" {
		cfg.CommandsTable = v
	}
	if cfg.DeviceHost == "" || cfg.ControllerID == "" || cfg.CommandsTable == "" {
		log.Fatal("device_host, controller_id and commands_table must be configured")
	}

	log.Printf("lumina bridge starting: controller %s, device %s", cfg.ControllerID, cfg.DeviceHost)

	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsOpts...)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	store, err := dynamo.NewCommandStore(dynamodb.NewFromConfig(awsCfg), cfg.CommandsTable)
	if err != nil {
		log.Fatalf("command store: %v", err)
	}

	metrics.Init()

	device := wled.NewClient(cfg.DeviceHost)
	executor := service.NewExecutor(store, device, cfg.ControllerID, cfg.MaxPerPoll)

	server := inputhttp.NewServer(executor)
	go func() {
		log.Printf("status server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Printf("status server: %v", err)
		}
	}()

	executor.Run(context.Background(), time.Duration(cfg.PollIntervalMS)*time.Millisecond)
}
