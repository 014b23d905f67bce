// Package source loads voting definition files into registries.
//
// A definition file is a YAML document listing declare blocks:
//
//	votings:
//	  - source: |
//	      declare Base { aggregate(let s = sumOf): score }
//	  - source: |
//	      declare Doubled { execute(let b = Base); global: b * 2 }
//	    alias: doubled
//
// Entries are registered in order into a fresh registry, so a definition
// may execute any voting declared before it. Directories are walked in
// lexical order and hidden files are skipped.
//
// FileSource reads from the local filesystem and watches it with fsnotify;
// GitSource reads from a clone of a Git repository and polls the remote.
// Callers load a new registry on every change and swap it in whole, so a
// broken edit never leaves a half-populated registry in service.
package source
