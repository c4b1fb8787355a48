/*
Package batch runs many independent completion requests through one
llm.Client while isolating per-record failures.

# Overview

An Executor takes a sequence of input records, normalizes the batch-wide
sampling options once, then for each record builds a request descriptor,
dispatches it, classifies any failure, and assembles one output record.
Output is always index-aligned with input: out[i] corresponds to in[i],
never reordered, never dropped, never merged.

# Failure policy

ContinueOnFailure selects between the two propagation modes:

  - true: every failure (validation or classified remote/local) becomes a
    Failure output for its record and the batch proceeds.
  - false: the first failure aborts the batch; outputs for records strictly
    before the failing one are returned together with the classified error.

The executor performs no retries; each record yields at most one remote call.

# Concurrency

The base design is strictly sequential with one outstanding call. With
Config.Concurrency > 1 and ContinueOnFailure set, records are dispatched
through a bounded worker set that writes results by index, preserving the
ordering invariant. Config.RequestsPerSecond optionally paces dispatches.

# Usage

	exec := batch.New(client, batch.Config{}, logger)
	out, err := exec.Run(ctx, records, batch.RunOptions{
	    Operation:         batch.OpChat,
	    Model:             "gpt-4o-mini",
	    RawOptions:        map[string]any{"temperature": 0.2, "stop": "END"},
	    ContinueOnFailure: true,
	})
*/
package batch
