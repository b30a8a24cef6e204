// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is a small command-line driver for the aggpipe engine: it
// loads seed documents and a pipeline from JSON files, runs them through a
// SQLite-backed collection, and prints the resulting document sequence.
// It exists to give the engine something runnable end to end; it is not
// part of the embeddable API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/docengine/aggpipe/internal/aggregations/metrics"
	"github.com/docengine/aggpipe/internal/matcher"
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/store/sqlitestore"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
	"github.com/docengine/aggpipe/internal/util/logging"

	"github.com/docengine/aggpipe"
)

// cli represents aggrun's command-line flags.
//
//nolint:lll // for readability
var cli struct {
	Pipeline   string `arg:"" help:"Path to a JSON file containing the pipeline (an array of stage objects)."`
	Collection string `default:"documents"                help:"Name of the source collection inside the SQLite database."`
	Input      string `default:""                         help:"Path to a JSON file containing an array of seed documents loaded into Collection before running."`
	DB         string `default:""                         help:"SQLite database file path; empty means an in-memory database."`
	Comment    string `default:""                         help:"Optional W3C trace-context JSON payload ({\"traceparent\":...}) linking this run to an upstream trace."`

	DebugAddr string `default:"127.0.0.1:8089" help:"Listen address for /metrics and /debug/statsviz; empty disables it."`

	Log struct {
		Level  string `default:"info"    help:"Log level: 'debug', 'info', 'warn', 'error'."`
		Format string `default:"console" help:"Log format: 'console' or 'json'." enum:"console,json"`
	} `embed:"" prefix:"log-"`
}

func main() {
	kong.Parse(&cli)

	logger, err := logging.NewLogger(cli.Log.Level, cli.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	defer logger.Sync() //nolint:errcheck

	setGOMAXPROCS(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	registerer := prometheus.DefaultRegisterer
	registerer.MustRegister(m)

	if cli.DebugAddr != "" {
		go serveDebug(ctx, logger, cli.DebugAddr)
	}

	if err := run(ctx, logger, m); err != nil {
		logger.Error("aggrun failed", zap.Error(err))
		os.Exit(1)
	}
}

// setGOMAXPROCS adjusts GOMAXPROCS to the container CPU quota, logging what
// it did so a surprising core count shows up in the logs rather than a
// mysterious slowdown.
func setGOMAXPROCS(logger *zap.Logger) {
	opts := []maxprocs.Option{
		maxprocs.Min(1),
		maxprocs.RoundQuotaFunc(func(v float64) int {
			return int(math.Ceil(v))
		}),
		maxprocs.Logger(func(format string, a ...any) {
			logger.Sugar().Infof(format, a...)
		}),
	}

	if _, err := maxprocs.Set(opts...); err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
}

// serveDebug runs the /metrics and /debug/statsviz HTTP endpoints until ctx
// is canceled.
func serveDebug(ctx context.Context, logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if err := statsviz.Register(mux); err != nil {
		logger.Warn("failed to register statsviz", zap.Error(err))
	}

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("debug listener started", zap.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("debug listener stopped", zap.Error(err))
	}
}

// run loads the pipeline and seed documents, runs the aggregation, and
// prints the result as JSON to stdout.
func run(ctx context.Context, logger *zap.Logger, m *metrics.Metrics) error {
	pipeline, err := loadPipeline(cli.Pipeline)
	if err != nil {
		return fmt.Errorf("aggrun: load pipeline: %w", err)
	}

	store, err := sqlitestore.Open(cli.DB)
	if err != nil {
		return fmt.Errorf("aggrun: open store: %w", err)
	}

	defer store.Close() //nolint:errcheck

	coll, err := store.GetCollection(ctx, cli.Collection)
	if err != nil {
		return fmt.Errorf("aggrun: get collection %q: %w", cli.Collection, err)
	}

	if cli.Input != "" {
		seed, err := loadDocuments(cli.Input)
		if err != nil {
			return fmt.Errorf("aggrun: load input: %w", err)
		}

		if err := coll.InsertMany(ctx, seed); err != nil {
			return fmt.Errorf("aggrun: seed collection %q: %w", cli.Collection, err)
		}

		logger.Info("seeded collection", zap.String("collection", cli.Collection), zap.Int("docs", len(seed)))
	}

	source := func(ctx context.Context) ([]*types.Document, error) {
		return consumeAll(ctx, coll)
	}

	opts := aggpipe.Options{
		Provider: store,
		Matcher:  matcher.New(),
		Logger:   logger,
		Metrics:  m,
		Comment:  cli.Comment,
	}

	cursor, err := aggpipe.Aggregate(ctx, source, pipeline, opts)
	if err != nil {
		return err
	}

	return printDocuments(cursor.ToArray())
}

// consumeAll drains coll's full, unfiltered contents.
func consumeAll(ctx context.Context, coll provider.CollectionHandle) ([]*types.Document, error) {
	iter, err := coll.Find(ctx, nil)
	if err != nil {
		return nil, err
	}

	return iterator.ConsumeValues(iter)
}

// loadPipeline reads path as a JSON array of stage objects (MongoDB
// Extended JSON, so $date/$oid/$numberLong and friends are accepted) and
// converts it to the engine's *types.Array.
func loadPipeline(path string) (*types.Array, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr bson.A
	if err := bson.UnmarshalExtJSON(raw, false, &arr); err != nil {
		return nil, fmt.Errorf("parse pipeline JSON: %w", err)
	}

	return sqlitestore.FromBSONArray(arr)
}

// loadDocuments reads path as a JSON array of documents, the same format
// produced by printDocuments.
func loadDocuments(path string) ([]*types.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr bson.A
	if err := bson.UnmarshalExtJSON(raw, false, &arr); err != nil {
		return nil, fmt.Errorf("parse input JSON: %w", err)
	}

	typesArr, err := sqlitestore.FromBSONArray(arr)
	if err != nil {
		return nil, err
	}

	docs := make([]*types.Document, typesArr.Len())

	for i, v := range typesArr.Slice() {
		doc, ok := v.(*types.Document)
		if !ok {
			return nil, fmt.Errorf("parse input JSON: element %d is not an object", i)
		}

		docs[i] = doc
	}

	return docs, nil
}

// printDocuments writes docs to stdout as a JSON array, one call to
// bson.MarshalExtJSON per document, so dates/binary/etc. round-trip.
func printDocuments(docs []*types.Document) error {
	out := make([]json.RawMessage, len(docs))

	for i, doc := range docs {
		b, err := bson.MarshalExtJSON(sqlitestore.ToBSON(doc), true, false)
		if err != nil {
			return fmt.Errorf("marshal result document %d: %w", i, err)
		}

		out[i] = b
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
