// Package viz renders runs for the terminal.
//
//   - [MetricsTable]: lipgloss table of suite or run metrics
//   - [RunCharts]: asciigraph plots of position, tracking error, thrust and
//     rotor speeds
//   - [RunSummary]: a titled box with run metadata and an error sparkline
//   - [LiveModel]: a bubbletea view playing samples at wall-clock rate,
//     fed by a [Feed] attached to a simulator or by [Replay]
//
// Colors come from the current [Theme]; [SetTheme] switches it.
package viz
