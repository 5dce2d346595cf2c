// Package dsl loads rule sets written in YAML or JSON and compiles them into
// rulekit rules over a map of facts.
//
// Conditions and expression effects are CEL programs that see the facts as the
// variable "facts". Template effects are Handlebars templates rendered with the
// top-level facts plus a "facts" key holding the whole map.
//
// Example rule file:
//
//	order: desc
//	rules:
//	  - name: high-value-discount
//	    priority: 10
//	    when: "facts.total > 100.0"
//	    max_applications: 1
//	    then:
//	      - set: discount
//	        expr: "facts.total * 0.10"
//	      - set: note
//	        template: "Discount for {{customer}}"
//	      - unset: coupon
//
// Loading and running it:
//
//	set, err := dsl.Load("rules.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine, err := dsl.BuildEngine(set, dsl.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	facts := dsl.Facts{"total": 150.0, "customer": "Ada"}
//	if err := engine.EvaluateAll(&facts); err != nil {
//	    log.Fatal(err)
//	}
package dsl
