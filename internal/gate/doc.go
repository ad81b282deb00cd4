// Package gate scores collected evidence against the validation stage gates
// (Desirability, Feasibility, Viability, Scale).
//
// Everything here is pure: no I/O, no clocks. Callers load evidence, convert it
// with ParseEvidence, and feed it to Evaluate and ReadinessScore.
package gate
