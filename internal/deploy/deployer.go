package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jrzesz33/rez_deploy/internal/artifact"
	"github.com/jrzesz33/rez_deploy/internal/models"
	"github.com/jrzesz33/rez_deploy/internal/reconcile"
)

// RoleReconciler drives the execution role toward the desired state
type RoleReconciler interface {
	Exists(ctx context.Context, roleName string) (string, bool, error)
	EnsureExists(ctx context.Context, roleName string) (string, error)
	Remove(ctx context.Context, roleName string) error
}

// FunctionReconciler drives the function toward the desired state
type FunctionReconciler interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, spec reconcile.FunctionSpec) (string, error)
	UpdateCode(ctx context.Context, name string, code []byte) error
	Remove(ctx context.Context, name string) error
}

// URLReconciler drives the function URL configuration toward the desired state
type URLReconciler interface {
	URLExists(ctx context.Context, name string) (string, bool, error)
	EnsureURL(ctx context.Context, name string, cfg reconcile.URLConfig) (string, error)
	DeleteURL(ctx context.Context, name string) error
}

// Recorder persists the outcome of a run
type Recorder interface {
	Save(ctx context.Context, record *models.DeploymentRecord) error
}

// Notifier announces the outcome of a run
type Notifier interface {
	Publish(ctx context.Context, record *models.DeploymentRecord) error
}

// Request describes one deploy or destroy run
type Request struct {
	FunctionName string
	RoleName     string
	Region       string

	// Function settings; zero values fall back to the reconciler defaults
	Handler        string
	Runtime        string
	Architecture   string
	MemoryMB       int32
	TimeoutSeconds int32

	// Artifact yields the deployable package; required for Deploy
	Artifact artifact.Producer
}

// Result is the outcome of a run
type Result struct {
	DeploymentID string
	URL          string
	Created      bool
	Message      string
}

// Deployer sequences the reconcilers into the deploy and destroy operations.
// The recorder and notifier are optional; their failures are logged and never
// fail a run.
type Deployer struct {
	roles     RoleReconciler
	functions FunctionReconciler
	urls      URLReconciler
	recorder  Recorder
	notifier  Notifier
	logger    *slog.Logger
}

// NewDeployer creates a deployer over the given reconcilers. Pass nil for
// recorder or notifier to disable them.
func NewDeployer(
	roles RoleReconciler,
	functions FunctionReconciler,
	urls URLReconciler,
	recorder Recorder,
	notifier Notifier,
	logger *slog.Logger,
) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Deployer{
		roles:     roles,
		functions: functions,
		urls:      urls,
		recorder:  recorder,
		notifier:  notifier,
		logger:    logger,
	}
}

// Deploy converges the account to a fully provisioned state: role, function
// (created or code-updated in place), public URL. The order is load-bearing:
// the role must exist before function creation, and the function before its
// URL. A partially provisioned account from an earlier aborted run is
// reconciled forward, never duplicated.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	record := models.NewDeploymentRecord(req.FunctionName, req.RoleName, req.Region, models.ActionDeploy)

	d.logger.InfoContext(ctx, "starting deploy",
		slog.String("deployment_id", record.ID),
		slog.String("function_name", req.FunctionName),
		slog.String("role_name", req.RoleName),
		slog.String("region", req.Region),
	)

	result, err := d.deploy(ctx, req, record)
	if err != nil {
		record.MarkFailed(err.Error())
		d.finish(ctx, record)
		return nil, err
	}

	record.MarkSucceeded(result.URL)
	d.finish(ctx, record)
	return result, nil
}

func (d *Deployer) deploy(ctx context.Context, req Request, record *models.DeploymentRecord) (*Result, error) {
	roleArn, err := d.roles.EnsureExists(ctx, req.RoleName)
	if err != nil {
		return nil, err
	}

	if req.Artifact == nil {
		return nil, fmt.Errorf("no artifact producer configured")
	}
	code, err := req.Artifact(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifact production failed: %w", err)
	}
	if err := artifact.Validate(code); err != nil {
		return nil, err
	}
	record.ArtifactSHA256 = artifact.SHA256(code)
	record.ArtifactBytes = int64(len(code))

	exists, err := d.functions.Exists(ctx, req.FunctionName)
	if err != nil {
		return nil, err
	}

	created := false
	if exists {
		if err := d.functions.UpdateCode(ctx, req.FunctionName, code); err != nil {
			return nil, err
		}
	} else {
		_, err := d.functions.Create(ctx, reconcile.FunctionSpec{
			Name:           req.FunctionName,
			RoleArn:        roleArn,
			Handler:        req.Handler,
			Runtime:        req.Runtime,
			Architecture:   req.Architecture,
			MemoryMB:       req.MemoryMB,
			TimeoutSeconds: req.TimeoutSeconds,
			Code:           code,
		})
		if err != nil {
			return nil, err
		}
		created = true
	}

	url, err := d.urls.EnsureURL(ctx, req.FunctionName, reconcile.DefaultURLConfig())
	if err != nil {
		return nil, err
	}

	return &Result{
		DeploymentID: record.ID,
		URL:          url,
		Created:      created,
		Message:      fmt.Sprintf("deployed %s at %s", req.FunctionName, url),
	}, nil
}

// Destroy tears the stack down: function first, then role, then a URL
// cleanup pass. Deleting the function already invalidates its URL
// configuration, so the final check typically observes absence and no-ops;
// the pass stays for accounts where the function was already gone but the
// URL record lingered.
func (d *Deployer) Destroy(ctx context.Context, req Request) (*Result, error) {
	record := models.NewDeploymentRecord(req.FunctionName, req.RoleName, req.Region, models.ActionDestroy)

	d.logger.InfoContext(ctx, "starting destroy",
		slog.String("deployment_id", record.ID),
		slog.String("function_name", req.FunctionName),
		slog.String("role_name", req.RoleName),
	)

	result, err := d.destroy(ctx, req, record)
	if err != nil {
		record.MarkFailed(err.Error())
		d.finish(ctx, record)
		return nil, err
	}

	record.MarkSucceeded("")
	d.finish(ctx, record)
	return result, nil
}

func (d *Deployer) destroy(ctx context.Context, req Request, record *models.DeploymentRecord) (*Result, error) {
	exists, err := d.functions.Exists(ctx, req.FunctionName)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := d.functions.Remove(ctx, req.FunctionName); err != nil {
			return nil, err
		}
	}

	_, ok, err := d.roles.Exists(ctx, req.RoleName)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := d.roles.Remove(ctx, req.RoleName); err != nil {
			// A concurrent delete winning the race still leaves the
			// desired end state
			if !reconcile.IsNotFound(err) {
				return nil, err
			}
		}
	}

	_, ok, err = d.urls.URLExists(ctx, req.FunctionName)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := d.urls.DeleteURL(ctx, req.FunctionName); err != nil {
			return nil, err
		}
	}

	return &Result{
		DeploymentID: record.ID,
		Message:      fmt.Sprintf("destroyed %s and role %s", req.FunctionName, req.RoleName),
	}, nil
}

// finish persists and announces the outcome best-effort
func (d *Deployer) finish(ctx context.Context, record *models.DeploymentRecord) {
	if d.recorder != nil {
		if err := d.recorder.Save(ctx, record); err != nil {
			d.logger.WarnContext(ctx, "failed to record deployment",
				slog.String("deployment_id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if d.notifier != nil {
		if err := d.notifier.Publish(ctx, record); err != nil {
			d.logger.WarnContext(ctx, "failed to publish deployment notification",
				slog.String("deployment_id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
