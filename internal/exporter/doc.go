// Package exporter renders computed metric results into their output
// formats: BOM-prefixed CSV tables, an Excel summary workbook and a
// static HTML dashboard per partition.
package exporter
