package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/feed"
	"github.com/specialistvlad/nodular/internal/graph"
	"github.com/specialistvlad/nodular/internal/loader"
)

// Run loads the configured graph, evaluates it once and writes every output
// value to the app's writer. Node failures do not stop the pass; they are
// returned together once all outputs have been written.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		_ = a.closeHealthCheckServer()
	}()

	g, err := loader.NewLoader(a.graphOptions()...).Load(ctx, a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	if g.Len() == 0 {
		a.logger.Warn("No nodes found in graph, evaluation not required.")
		return nil
	}

	if a.config.FeedURL != "" {
		detach, err := a.attachFeed(ctx, g)
		if err != nil {
			return err
		}
		defer detach()
	}

	a.logger.Info("🚀 Starting evaluation...", "nodes", g.Len())
	report, err := g.EvaluateNodes(ctx)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("🏁 Evaluation finished.", "runs", len(report.Order), "failed", len(report.Failed()))

	if err := writeOutputs(a.outW, g); err != nil {
		return err
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("%d node(s) failed: %w", len(report.Failed()), err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// attachFeed connects to the configured socket.io server and forwards every
// output update of g to it. The returned func tears the feed down.
func (a *App) attachFeed(ctx context.Context, g *graph.Graph) (func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, a.config.FeedTimeout)
	defer cancel()

	client, err := feed.Dial(dialCtx, feed.ClientOptions{
		URL:                a.config.FeedURL,
		Namespace:          a.config.FeedNamespace,
		InsecureSkipVerify: a.config.FeedInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect feed: %w", err)
	}

	forwarder := feed.NewForwarder(client)
	forwarder.Attach(ctx, g)
	return func() {
		live := forwarder.Detach()
		a.logger.Debug("Feed detached.", "subscriptions", live)
		client.Close()
	}, nil
}
