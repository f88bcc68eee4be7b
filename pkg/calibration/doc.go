// Package calibration implements the interactive axis calibration wizard.
// It contains:
//
//   - Step: the discrete steps of the wizard state machine
//   - Wizard: the single-session state machine driven by the daemon
//   - Status: a synthesized view model returned by HTTP APIs and used by the
//     CLI and GUI
//
// These types are shared across daemon, client and GUI code to avoid
// duplicate definitions and keep JSON contracts consistent.
package calibration
