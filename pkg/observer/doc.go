// Package observer provides lifecycle observers that export state changes
// out of the process.
//
// # Usage
//
// Keep the latest state on disk for operators:
//
//	status := observer.NewStatusFile(dataDir, logger)
//	svc := lifecycle.New(open, close, lifecycle.WithObserver(status))
//
// Forward every state change to an HTTP endpoint:
//
//	hook, err := observer.NewWebhook(observer.WebhookConfig{
//	    URL:       "https://ops.example.com/hooks/lifecycle",
//	    AuthToken: token,
//	}, nil, logger)
//	if err != nil {
//	    return err
//	}
//	go hook.Run(ctx)
//	svc.Subscribe(hook)
//
// Export Prometheus metrics:
//
//	metrics, err := observer.NewMetrics(prometheus.DefaultRegisterer)
//	if err != nil {
//	    return err
//	}
//	svc.Subscribe(metrics.Observer())
//
// Webhook deliveries are retried with exponential backoff and jitter
// (see Backoff) and dropped after WebhookConfig.MaxAttempts.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package observer
