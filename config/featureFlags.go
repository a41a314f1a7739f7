package config

import (
	"os"
	"strings"
)

// StrictWrenchCheck escalates wrench/truck-PSI cross-check mismatches from
// warnings to errors in the logs. It never removes candidates from results;
// source data is known to carry occasional inconsistencies.
//
// Set via env:
// - STRICT_WRENCH_CHECK=true
func StrictWrenchCheck() bool {
	return boolFromEnv("STRICT_WRENCH_CHECK")
}

// DensePositions enables renumbering of stack member positions on removal,
// inside the same transaction as the delete. Readers always sort by position,
// so gaps are invisible either way.
//
// Set via env:
// - DENSE_POSITIONS=true
func DensePositions() bool {
	return boolFromEnv("DENSE_POSITIONS")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
