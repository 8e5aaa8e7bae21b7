// Package bedrock is a thin JSON-over-InvokeModel helper shared by the
// Bedrock embedding and generation backends. AWS credentials are resolved via
// the standard SDK chain (env vars, shared config, instance profile).
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Invoker is the subset of [*bedrockruntime.Client] used by this repository.
// Tests inject a fake.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// NewClient builds a Bedrock runtime client for region.
func NewClient(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// InvokeJSON marshals req, invokes modelID and unmarshals the response body
// into resp.
func InvokeJSON(ctx context.Context, inv Invoker, modelID string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := inv.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("bedrock: invoke %s: %w", modelID, err)
	}

	if err := json.Unmarshal(out.Body, resp); err != nil {
		return fmt.Errorf("bedrock: decode %s response: %w", modelID, err)
	}
	return nil
}

// CheckCredentials resolves AWS credentials for region without calling a
// model, so readiness checks cost nothing.
func CheckCredentials(ctx context.Context, region string) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("bedrock: resolve credentials: %w", err)
	}
	return nil
}
