// Package sponsors looks up sponsor records in a spreadsheet and generates
// sponsorship agreements from LaTeX templates.
//
// A Plugin is configured with Settings (defaults merged with overrides),
// fetches the sponsor table from a Source on every request, narrows it to a
// single row by the company column and either renders an info table or
// hands the row to a Generator. The surrounding application supplies the
// chat transport through the Host interface.
package sponsors
