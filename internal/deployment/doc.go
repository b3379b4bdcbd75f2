// Package deployment runs the edge deployment workflow: a typed state
// machine that resolves a model, compiles and packages it, and rolls it out
// to a Greengrass core device.
//
// The workflow is a fixed graph of task, wait and terminal states built by
// DeploymentMachine. Task states talk to AWS only through the adapter
// interfaces in interfaces.go and write their results to a WorkflowContext,
// an append-only document that is checkpointed before every state. An
// execution that is cancelled during a wait is suspended and can be resumed
// from its checkpoint without repeating any submission:
//
//	engine, _ := deployment.NewEngine(cfg, services, deployment.WithStore(store))
//	res, err := engine.Start(ctx, "", input)
//	if errors.Is(err, deployment.ErrSuspended) {
//		res, err = engine.Resume(ctx, id)
//	}
//
// Resource names derive from the execution id, so a retried submission
// either creates the resource or finds the one an earlier attempt created.
package deployment
