// Command graphrt serves a GraphQL schema whose resolvers are declared in a
// remote manifest, and offers tools to validate and print the schema.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/graphrt/internal/bootstrap"
	"github.com/hanpama/graphrt/internal/config"
	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/remote"
	"github.com/hanpama/graphrt/internal/schema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	root := &cobra.Command{
		Use:           "graphrt",
		Short:         "GraphQL resolver runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cobra.CheckErr(config.BindFlags(v, root.PersistentFlags()))
	root.AddCommand(newServeCmd(v), newCheckCmd(v), newSchemaCmd(v))
	return root
}

// project is the loaded configuration and schema with the modules built from
// the remote manifest.
type project struct {
	cfg       *config.Config
	schema    *schema.Schema
	modules   []dispatch.Module
	transport *remote.Transport
}

func loadProject(v *viper.Viper) (*project, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	sch, err := schema.LoadFiles(cfg.Schema.Paths...)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	p := &project{cfg: cfg, schema: sch}
	if cfg.Remote.Manifest == "" {
		return p, nil
	}
	manifest, err := remote.LoadManifest(cfg.Remote.Manifest)
	if err != nil {
		return nil, err
	}
	p.transport = remote.NewTransport(
		remote.WithProvider(manifest.Provider()),
		remote.WithMaxConnsPerEndpoint(cfg.Remote.MaxConnsPerEndpoint),
		remote.WithRPCTimeout(cfg.Remote.RPCTimeout),
	)
	mod, err := remote.Module(manifest, p.transport)
	if err != nil {
		_ = p.transport.Close()
		return nil, err
	}
	p.modules = append(p.modules, mod)
	return p, nil
}

func (p *project) bootstrap(ctx context.Context, cache *language.DocumentCache) (*bootstrap.Service, error) {
	return bootstrap.Build(ctx, p.schema, bootstrap.Options{Modules: p.modules, Cache: cache})
}

func (p *project) Close() error {
	if p.transport == nil {
		return nil
	}
	return p.transport.Close()
}
