package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/relay/internal/config"
	"github.com/ShayCichocki/relay/internal/judgment"
)

// createJudgmentClient creates the Anthropic-backed judgment client from the
// loaded configuration. The same client also serves the specialist workers
// as their completion backend.
func createJudgmentClient(cfg *config.Config) (*judgment.Client, error) {
	client, err := judgment.NewClient(judgment.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		MaxRetries:    cfg.Execution.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create judgment client: %w", err)
	}
	return client, nil
}
