// Package xlsxextract finds cells and tables in Excel workbooks and copies
// them into a templated target workbook.
//
// The building blocks are Comparator (a single-value predicate), CellMatch
// and RangeMatch (which resolve a cell or rectangular table in a workbook,
// by reference or by search) and Target (which moves matched data into a
// target workbook, with optional alignment and resizing). A Runner ties
// them together by reading match and transfer definitions from a
// configuration sheet inside the target workbook itself.
package xlsxextract
