// Package models defines the core domain types for Evenly.
//
// # Conventions
//
// All monetary amounts are int64 values in minor currency units (cents).
// Floating point never enters the calculation path; the HTTP boundary is
// expected to convert display amounts to cents before they reach this
// package.
//
// # Stored vs derived state
//
// Profile, Group and Expense are persisted; a group's expense set is the
// single source of truth. Shares, balances and settlement plans are
// derived values, recomputed from the expense set on every mutation, and
// must never be written back as authoritative state.
//
// # Design principles
//
//  1. Relationships use ID strings rather than pointers, avoiding
//     circular references between groups, expenses and profiles.
//  2. Split strategies are carried on the expense itself (kind plus
//     per-participant allocations) so an expense is self-contained input
//     for the calculator.
//  3. Derived types (Transfer, Snapshot) carry no lifecycle of their
//     own; a Snapshot is only valid for the expense set it was computed
//     from.
package models
