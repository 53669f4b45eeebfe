// Package catalog declares the query engine options known to a node. Each
// entry is a typed handle usable both as a registry descriptor and as an
// accessor:
//
//	target, err := opts.GetInt(ctx, manager, catalog.SliceTarget)
package catalog

import (
	"math"

	opts "github.com/goliatone/go-sysoptions"
)

// Shared by the catalog's expression rules: one program cache, the default
// helper functions and a CEL engine over them.
var (
	rules     = opts.NewProgramCache()
	functions = opts.DefaultFunctions()
	cel       = opts.NewCELEvaluator(opts.EvaluatorWithFunctions(functions))
)

// Planner.
var (
	SliceTarget = opts.NewIntOption("planner.slice_target", 100000,
		opts.WithDescription("Number of records manipulated within a fragment before parallelizing"),
		opts.WithRules(opts.IntRange(1, math.MaxInt64)),
	)
	AffinityFactor = opts.NewFloatOption("planner.affinity_factor", 1.2,
		opts.WithDescription("Weight given to data locality when assigning fragments"),
		opts.WithRules(opts.Expression("value > 0.0",
			opts.RuleWithProgramCache(rules),
			opts.RuleWithFunctionRegistry(functions),
			opts.RuleWithMessage("affinity factor must be positive"),
		)),
	)
	MaxWidthPerNode = opts.NewIntOption("planner.width.max_per_node", 8,
		opts.WithDescription("Maximum number of fragments of one major fragment per node"),
		opts.WithRules(opts.IntRange(1, 1024)),
	)
	MaxWidthPerQuery = opts.NewIntOption("planner.width.max_per_query", 1000,
		opts.WithDescription("Maximum number of fragments of one major fragment across the cluster"),
		opts.WithRules(opts.IntRange(1, 99999)),
	)
	BroadcastJoin = opts.NewBoolOption("planner.enable_broadcast_join", true,
		opts.WithDescription("Allow broadcast joins"),
	)
	BroadcastThreshold = opts.NewIntOption("planner.broadcast_threshold", 10000000,
		opts.WithDescription("Maximum estimated row count for the broadcast side of a join"),
		opts.WithRules(opts.IntRange(0, math.MaxInt32)),
	)
	BroadcastFactor = opts.NewFloatOption("planner.broadcast_factor", 1.0,
		opts.WithRules(opts.FloatRange(0, math.MaxFloat64)),
	)
	HashJoin = opts.NewBoolOption("planner.enable_hashjoin", true,
		opts.WithDescription("Allow hash joins"),
	)
	MaxQueryMemoryPerNode = opts.NewIntOption("planner.memory.max_query_memory_per_node", 2147483648,
		opts.WithDescription("Bytes of direct memory one query may use on each node"),
		opts.WithRules(opts.IntRange(1<<20, math.MaxInt64)),
	)
)

// Execution.
var (
	QueueEnable = opts.NewBoolOption("exec.queue.enable", false,
		opts.WithDescription("Queue queries when the cluster is saturated"),
	)
	LargeQueueSize = opts.NewIntOption("exec.queue.large", 10,
		opts.WithRules(opts.IntRange(0, 1000)),
	)
	SmallQueueSize = opts.NewIntOption("exec.queue.small", 100,
		opts.WithRules(opts.IntRange(0, 100000)),
	)
	QueueThreshold = opts.NewIntOption("exec.queue.threshold", 30000000,
		opts.WithRules(opts.IntRange(0, math.MaxInt64)),
	)
	QueueTimeoutMillis = opts.NewIntOption("exec.queue.timeout_millis", 300000,
		opts.WithDescription("How long a queued query waits before failing"),
		opts.WithRules(opts.Expression("value >= 0 && value <= 86400000",
			opts.RuleWithProgramCache(rules),
			opts.RuleWithEvaluator(cel),
		)),
	)
	VerboseErrors = opts.NewBoolOption("exec.errors.verbose", false,
		opts.WithDescription("Include stack traces in errors returned to clients"),
	)
	UnionType        = opts.NewBoolOption("exec.enable_union_type", false)
	QueryProfileSave = opts.NewBoolOption("exec.query_profile.save", true,
		opts.WithDescription("Persist query profiles"),
	)
	QueryProfileDebug = opts.NewBoolOption("exec.query_profile.debug_mode", false,
		opts.Internal(),
	)
	DynamicUDFSupport = opts.NewBoolOption("exec.udf.enable_dynamic_support", true)
	TestingControls   = opts.NewStringOption("exec.testing.controls", "{}",
		opts.WithDescription("Fault injection controls used by tests"),
		opts.Internal(),
	)
)

// Storage formats.
var (
	OutputFormat = opts.NewStringOption("store.format", "parquet",
		opts.WithDescription("Default output format for CREATE TABLE AS"),
		opts.WithRules(opts.OneOf("parquet", "json", "csv", "psv", "tsv")),
	)
	ParquetCompression = opts.NewStringOption("store.parquet.compression", "snappy",
		opts.WithRules(opts.OneOf("snappy", "gzip", "none")),
	)
	ParquetBlockSize = opts.NewIntOption("store.parquet.block-size", 536870912,
		opts.WithRules(
			opts.IntRange(1, math.MaxInt32),
			opts.Expression("pow2(value)",
				opts.RuleWithProgramCache(rules),
				opts.RuleWithFunctionRegistry(functions),
				opts.RuleWithMessage("parquet block size must be a power of two"),
			),
		),
	)
	JSONAllTextMode = opts.NewBoolOption("store.json.all_text_mode", false)
)

// Security and web.
var (
	AdminUsers = opts.NewStringOption("security.admin.users", "%drill_process_user%",
		opts.WithDescription("Comma separated users with administrator privileges"),
		opts.WithRules(opts.NotEmpty()),
	)
	WebLogsMaxLines = opts.NewIntOption("web.logs.max_lines", 10000,
		opts.WithRules(opts.IntRange(1, math.MaxInt32)),
	)
)

// Descriptors lists every catalog option.
func Descriptors() []*opts.Descriptor {
	return []*opts.Descriptor{
		SliceTarget.Descriptor,
		AffinityFactor.Descriptor,
		MaxWidthPerNode.Descriptor,
		MaxWidthPerQuery.Descriptor,
		BroadcastJoin.Descriptor,
		BroadcastThreshold.Descriptor,
		BroadcastFactor.Descriptor,
		HashJoin.Descriptor,
		MaxQueryMemoryPerNode.Descriptor,
		QueueEnable.Descriptor,
		LargeQueueSize.Descriptor,
		SmallQueueSize.Descriptor,
		QueueThreshold.Descriptor,
		QueueTimeoutMillis.Descriptor,
		VerboseErrors.Descriptor,
		UnionType.Descriptor,
		QueryProfileSave.Descriptor,
		QueryProfileDebug.Descriptor,
		DynamicUDFSupport.Descriptor,
		TestingControls.Descriptor,
		OutputFormat.Descriptor,
		ParquetCompression.Descriptor,
		ParquetBlockSize.Descriptor,
		JSONAllTextMode.Descriptor,
		AdminUsers.Descriptor,
		WebLogsMaxLines.Descriptor,
	}
}

// Registry builds a registry over Descriptors.
func Registry() (*opts.Registry, error) {
	return opts.NewRegistry(Descriptors()...)
}
