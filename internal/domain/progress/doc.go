// Package progress contains the per-user progress model of the gamification
// engine: counters, experience, levels and daily streaks.
//
// Everything here is pure domain logic. Persistence is abstracted by the
// Repository interface and implemented in infrastructure/persistence.
package progress
