// Package choice implements tagged-union ("choice type") decoding and
// encoding for configuration-style documents.
//
// A choice type is an abstract family of concrete variants. Which variant a
// document describes is selected by a discriminator string stored under the
// reserved "type" key. A Registry maps each tag to its concrete Go type:
//
//	shapes := choice.NewRegistry()
//	choice.MustAdd[Circle](shapes, "circle")
//	choice.MustAdd[Square](shapes, "square")
//
//	v, err := shapes.Decode(map[string]any{"type": "circle", "radius": 2.0})
//	// v is *Circle{Radius: 2}
//
// Encode is the mirror: the instance's fields are serialized to a map and
// the tag corresponding to its runtime type is reattached:
//
//	doc, err := shapes.Encode(&Square{Side: 3})
//	// doc is map[string]any{"type": "square", "side": 3.0}
//
// Variant structs may themselves contain choice-typed fields. Declaring an
// interface type as the root of a registry with BindRoot lets the decoder
// resolve such nested fields recursively:
//
//	type Shape interface{ Area() float64 }
//	choice.BindRoot[Shape](shapes)
//
//	type Drawing struct {
//		Outline Shape `json:"outline"`
//	}
//
// Nested choice fields are resolved in interface fields of a variant struct
// and of structs nested inside it. Structural decoding is strict (unknown
// keys are rejected) and runs go-playground validation against the concrete
// struct's `validate` tags.
//
// Registries can be populated lazily. A Source loads variants on the first
// lookup; plugin packages register loader functions from their init and a
// registry discovers them by namespace:
//
//	reg := choice.NewRegistry(choice.WithDiscovery(choice.Namespace("myapp/models")))
//
// See RegisterLoader, Namespace and Dir for the discovery contract.
package choice
