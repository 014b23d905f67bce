// ldatranslate evaluates voting expressions that combine the scores of many
// voters into one value.
//
// It parses and prints votings, checks definition files, evaluates votings
// against YAML contexts and serves the evaluation engine over HTTP with an
// audit trail of every evaluation.
//
// Usage:
//
//	# Print a voting in canonical form
//	ldatranslate fmt voting.txt
//
//	# Check definition files
//	ldatranslate check --defs votings/
//
//	# Evaluate a voting against contexts
//	ldatranslate eval --voting "CombSum" --contexts contexts.yaml
//
//	# Start the HTTP bridge
//	ldatranslate serve --config config.yaml
//
//	# Query the audit trail
//	ldatranslate audit query --voting CombSum --status error
//
//	# Show version information
//	ldatranslate version
package main

func main() {
	Execute()
}
