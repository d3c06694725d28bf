// Package importer implements the bulk data-import pipeline for the league
// backend: a staged wizard that ingests a CSV or XLSX file, maps its columns
// onto the schema of an import kind, validates every record against the
// kind's rule set and submits the file to the remote import endpoint.
//
// Core components:
//
// Parser: turns raw file bytes into an ordered sequence of header-keyed
// records plus the raw header list. Malformed rows are skipped and counted,
// never fatal.
//
// Schema registry: per-kind declarative field definitions (key, label,
// required flag, description, example). Adding a new import kind means
// adding one KindSpec to the registry; nothing else changes.
//
// Mapping engine: best-effort header-to-field matching in three passes
// (exact, normalized containment, synonym table) with manual override.
// Fields the user set by hand are never clobbered by a re-run.
//
// Validation engine: pure per-row rule functions per kind producing
// classified findings (error or warning), aggregate stats with per-field
// coverage, a preview of clean records and the canImport decision.
//
// Executor: submits the original upload to the remote import endpoint for
// the kind, reports staged progress milestones and normalizes the remote
// result into success/error buckets keyed by row number.
//
// Wizard: a finite-state sequencer over the five stages with pure guards,
// back/reset navigation and a one-shot execute entry action.
package importer
