// Package pipelineconfig defines the typed render pipeline configuration and
// the resolver that merges caller partials over defaults.
//
// Resolution is pure: it never fails and never mutates its inputs. Invalid
// enumeration values or out of range numbers in a partial are ignored in
// favour of the default for that field. After the merge, short or long texts
// tune render quality and frame rate unless the caller set those fields.
package pipelineconfig
