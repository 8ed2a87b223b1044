// Package mocks provides mock implementations for testing the photomesh job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// core ports. The mocks are generated using go:generate directives and provide a
// fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	producer := mocks.NewMockArtifactProducer(ctrl)
//	producer.EXPECT().ProduceArtifact(gomock.Any(), "job-1", gomock.Any()).Return("out/job-1/model.glb", nil)
package mocks

// Generate mock for ArtifactProducer interface from internal/core package.
// This creates MockArtifactProducer with ProduceArtifact.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=artifact_producer_mock.go github.com/photomesh/photomesh/internal/core ArtifactProducer

// Generate mock for SnapshotCache interface from internal/core package.
// This creates MockSnapshotCache with StoreTerminal and GetTerminal.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=snapshot_cache_mock.go github.com/photomesh/photomesh/internal/core SnapshotCache

// Generate mock for HistoryRecorder interface from internal/core package.
// This creates MockHistoryRecorder with RecordTerminal.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=history_recorder_mock.go github.com/photomesh/photomesh/internal/core HistoryRecorder

// Generate mock for TerminalNotifier interface from internal/core package.
// This creates MockTerminalNotifier with NotifyTerminal.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=terminal_notifier_mock.go github.com/photomesh/photomesh/internal/core TerminalNotifier
