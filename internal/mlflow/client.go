package mlflow

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/httpclient"
	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/expctl/internal/config"
)

// experimentsAPI is the part of the MLflow experiments service used here.
type experimentsAPI interface {
	CreateRun(ctx context.Context, request ml.CreateRun) (*ml.CreateRunResponse, error)
	GetRun(ctx context.Context, request ml.GetRunRequest) (*ml.GetRunResponse, error)
	LogMetric(ctx context.Context, request ml.LogMetric) error
	LogParam(ctx context.Context, request ml.LogParam) error
	UpdateRun(ctx context.Context, request ml.UpdateRun) (*ml.UpdateRunResponse, error)
}

// restAPI issues authenticated requests the SDK has no typed method for.
type restAPI interface {
	Do(ctx context.Context, method, path string, opts ...httpclient.DoOption) error
}

type Client struct {
	client      *databricks.WorkspaceClient
	experiments experimentsAPI
	api         restAPI
	config      *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateTracking(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}

		if cfg.TrackingURI == "databricks" {
			if cfg.DatabricksHost != "" {
				databricksConfig.Host = cfg.DatabricksHost
			}
		} else if profile := cfg.GetDatabricksProfile(); profile != "" {
			databricksConfig.Profile = profile
		} else {
			databricksConfig.Host = cfg.TrackingURI
		}

		// token overrides profile
		if cfg.DatabricksToken != "" {
			databricksConfig.Token = cfg.DatabricksToken
		}

		if databricksConfig.Host == "" && databricksConfig.Profile == "" {
			return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
		}
	} else {
		// plain MLflow servers ignore the token
		databricksConfig = &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	c := &Client{
		client:      client,
		experiments: client.Experiments,
		config:      cfg,
	}
	if cfg.IsDatabricks() {
		api, err := client.Config.NewApiClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create Databricks API client: %w", err)
		}
		c.api = api
	}
	return c, nil
}
