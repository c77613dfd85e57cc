// Package uxf reads and writes UXF (Uniform eXchange Format), a plain
// text, human readable, optionally typed storage format. UXF may serve
// as a convenient alternative to csv, ini, json, toml, xml, or yaml.
//
// # Data Model
//
// Scalars: null (?), bool (yes/no), int, real, date, datetime, str,
// bytes. Collections: list, map, table. A document holds exactly one
// top-level collection plus any user-defined table schemas (ttypes).
//
// # Syntax
//
//	uxf 1.0 Price List
//	=PriceList Date:date Price:real Quantity:int ID:str Description:str
//	(PriceList 2022-09-21 3.99 2 <CH1-A2> <Chisels (pair), 1in &amp; 1¼in>)
//
// Maps are written {key value ...} with optional key and value types,
// lists [value ...] with an optional value type, strings <like this>
// with &amp;, &lt;, and &gt; entities, and bytes (:A1 B2:). Comments are
// #<text> immediately after an opening delimiter or the header.
//
// # Loading and Dumping
//
//	doc, err := uxf.LoadFile("prices.uxf")
//	...
//	text, err := uxf.Dump(doc)
//
// Load accepts gzip-compressed input transparently; DumpFile compresses
// when the filename ends in .gz. Output formatting is driven by Format;
// a default load round-trips: parsing a dump reproduces an equal
// document.
//
// # Imports
//
// A ! directive inlines the ttypes of another UXF source: a system name
// from the built-in registry, a filename searched for relative to the
// importing file and along UXF_PATH, or an HTTP(S) URL. Cycles are
// detected and reported.
//
// # Diagnostics
//
// Every diagnostic carries a 1-based line, a stable code (E-LEX-*,
// E-PARSE-*, E-TYPE-*, E-IMP-*, W-* for warnings), a message, and the
// filename. Install an ErrorHandler through ParseOptions to accumulate
// warnings instead of logging them; fatal errors always abort the load.
//
// The package is single-threaded and synchronous: load documents on
// separate goroutines only with a thread-safe error handler and a
// stable UXF_PATH.
package uxf
