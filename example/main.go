package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	mosyle "github.com/mosyletools/go-mosyle"
)

func main() {
	// Credentials come from MOSYLE_ACCESS_TOKEN, MOSYLE_EMAIL and
	// MOSYLE_PASSWORD, optionally via a .env file.
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client, err := mosyle.New(mosyle.ConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Creating client", zap.Error(err))
	}

	ctx := context.Background()

	devices, err := client.ListDevices(ctx, "macos", nil, -1, nil)
	if err != nil {
		logger.Fatal("Listing devices", zap.Error(err))
	}

	for _, device := range devices {
		fmt.Println(device.SerialNumber())
	}

	if len(devices) > 0 {
		serial := devices[0].SerialNumber()
		updated, err := client.UpdateDevice(ctx, "macos", serial, map[string]any{
			"name": fmt.Sprintf("Managed %s", serial),
		})
		if err != nil {
			logger.Fatal("Updating device", zap.Error(err))
		}
		logger.Info("Device updated", zap.String("serialNumber", updated.SerialNumber()))
	}
}
