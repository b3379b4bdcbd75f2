package deployment

import (
	"context"
	"fmt"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/util/async"
)

// Preflight checks in parallel that the collaborators an execution depends
// on are reachable: the target device, the inference component and, when
// configured, the model package group. Extra tasks run alongside.
func Preflight(ctx context.Context, cfg *config.Config, services Services, extra ...async.Task) []async.Result {
	thing := cfg.Device.ThingName
	inference := cfg.Components.Inference.Name

	tasks := []async.Task{
		{
			Name: "device " + thing,
			Func: func(ctx context.Context) error {
				_, err := services.Devices.DescribeDevice(ctx, thing)
				return err
			},
		},
		{
			Name: "component " + inference,
			Func: func(ctx context.Context) error {
				_, err := services.Components.LatestVersion(ctx, inference)
				return err
			},
		},
	}

	if group := cfg.ModelPackageGroupName; group != "" {
		tasks = append(tasks, async.Task{
			Name: "model package group " + group,
			Func: func(ctx context.Context) error {
				pkg, err := services.Models.LatestApprovedModel(ctx, group)
				if err != nil {
					return err
				}
				if pkg.ModelDataURL == "" {
					return fmt.Errorf("model package %s has no model data", pkg.Arn)
				}
				return nil
			},
		})
	}

	return async.RunAll(ctx, append(tasks, extra...))
}
