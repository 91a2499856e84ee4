package artifact_test

import (
	"fmt"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

func ExampleSession_Feed() {
	s := artifact.NewSession()

	for _, chunk := range []string{`{"html": "<h1>Hel`, `lo</h1>", "css": "h1 {`, ` color: red }", "js": ""}`} {
		for _, u := range s.Feed(chunk) {
			fmt.Printf("%s=%q complete=%v\n", u.Field, u.Value, u.Complete)
		}
	}

	doc, _ := s.Finish()
	fmt.Println(doc.HTML)
	// Output:
	// html="<h1>Hel" complete=false
	// html="<h1>Hello</h1>" complete=true
	// css="h1 {" complete=false
	// css="h1 { color: red }" complete=true
	// <h1>Hello</h1>
}

func ExampleRecover() {
	doc, failure := artifact.Recover("Here you go:\n```json\n{\"html\": \"<p>hi</p>\", \"css\": \"\", \"js\": \"\"}\n```")
	fmt.Println(doc.HTML, failure == nil)

	_, failure = artifact.Recover(`{"error": "request refused"}`)
	fmt.Println(failure)
	// Output:
	// <p>hi</p> true
	// domain_reported_error: request refused
}

func ExampleExtract() {
	r := artifact.Extract(`{"html": "<div>loading`, artifact.HTML)
	fmt.Printf("%q %v\n", r.Value, r.Complete)
	// Output:
	// "<div>loading" false
}
