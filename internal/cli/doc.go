// Package cli implements the rulekit command line: evaluating facts against a
// rule file, validating rule files and running the Redis worker.
package cli
