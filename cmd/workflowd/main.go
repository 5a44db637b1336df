// Command workflowd serves the workflow execution API.
//
//	workflowd                        serve (config.yml, .env and environment)
//	workflowd --seed-only            load seed data and exit
//	workflowd --issue-token user-1   print a bearer token for user-1 and exit
//	workflowd --version              print build information and exit
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/flowengine/auth"
	"github.com/kbukum/flowengine/bootstrap"
	"github.com/kbukum/flowengine/config"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/version"

	_ "github.com/kbukum/flowengine/llm/ollama"
	_ "github.com/kbukum/flowengine/llm/openai"
)

const serviceName = "workflowd"

type flags struct {
	configFile  string
	envFile     string
	seedOnly    bool
	issueToken  string
	tokenRole   string
	showVersion bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.StringVarP(&f.configFile, "config", "c", "", "config file (default: discovered config.yml)")
	fs.StringVar(&f.envFile, "env-file", "", ".env file (default: discovered .env)")
	fs.BoolVar(&f.seedOnly, "seed-only", false, "load seed data into storage and exit")
	fs.StringVar(&f.issueToken, "issue-token", "", "print a signed bearer token for this user id and exit")
	fs.StringVar(&f.tokenRole, "role", "", "role claim for --issue-token")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		logger.Error("workflowd failed", logger.ErrorFields("run", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.showVersion {
		fmt.Println(version.Get().String())
		return nil
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if f.issueToken != "" {
		return issueToken(cfg, f.issueToken, f.tokenRole)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	svc, err := newService(app, !f.seedOnly)
	if err != nil {
		return err
	}
	if f.seedOnly {
		return app.RunTask(ctx, func(ctx context.Context) error {
			_, err := svc.seed(ctx)
			return err
		})
	}
	return app.Run(ctx)
}

func loadConfig(f *flags) (*Config, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Version
	}
	return cfg, nil
}

func issueToken(cfg *Config, userID, role string) error {
	cfg.Auth.ApplyDefaults()
	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(userID, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
