// Package bootstrap runs the workflowd process lifecycle: start components,
// run configure callbacks and hooks, print the startup summary, wait for a
// signal and shut down gracefully.
//
// The config type parameter is any struct embedding config.ServiceConfig:
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(dbComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return wireEngine(ctx, a)
//	})
//	err = app.Run(ctx)
package bootstrap
