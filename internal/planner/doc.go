// Package planner turns a declarative variant spec into the ordered list of
// derivatives one asset yields.
//
// A [VariantSpec] is a list of rules; each rule pairs a glob pattern
// (doublestar syntax, matched against the asset's source-relative path)
// with an ordered list of [Descriptor]s. Every matching rule contributes,
// in rule order then descriptor order. Planning is a pure function of the
// asset and the spec: the same inputs always yield the same list.
package planner
