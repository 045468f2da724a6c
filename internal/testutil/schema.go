package testutil

import (
	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/schema"
)

// PeopleSchema returns the object model shared by package tests.
//
//	Person   (primary key name) with scalars of every type, a self link,
//	         an embedded Address, lists, a set, maps and mixed values
//	Dog      with an owner link and a list of Toys
//	Toy      name and decimal price
//	Address  embedded: city, optional zip, optional Country link
//	Country  (primary key code)
//	Mood     string enum; Priority int enum
//
// A fresh schema is built on each call so tests may mutate it.
func PeopleSchema() *schema.Schema {
	person := &schema.Object{
		Name:       "Person",
		PrimaryKey: "name",
		Properties: []schema.Property{
			{Name: "name", Type: schema.TypeString},
			{Name: "age", Type: schema.TypeInt},
			{Name: "height", Type: schema.TypeDouble},
			{Name: "weight", Type: schema.TypeFloat, Optional: true},
			{Name: "balance", Type: schema.TypeDecimal},
			{Name: "born", Type: schema.TypeDate},
			{Name: "photo", Type: schema.TypeBinary, Optional: true},
			{Name: "token", Type: schema.TypeUUID, Optional: true},
			{Name: "active", Type: schema.TypeBool},
			{Name: "nickname", Type: schema.TypeString, Optional: true},
			{Name: "mood", Type: schema.TypeEnum, Enum: "Mood", Optional: true},
			{Name: "level", Type: schema.TypeEnum, Enum: "Priority"},
			{Name: "partner", Type: schema.TypeObject, ObjectType: "Person", Optional: true},
			{Name: "address", Type: schema.TypeObject, ObjectType: "Address", Optional: true},
			{Name: "homes", Type: schema.TypeObject, ObjectType: "Address", Collection: schema.CollectionList},
			{Name: "dogs", Type: schema.TypeObject, ObjectType: "Dog", Collection: schema.CollectionList},
			{Name: "scores", Type: schema.TypeInt, Collection: schema.CollectionList},
			{Name: "tags", Type: schema.TypeString, Collection: schema.CollectionSet},
			{Name: "prices", Type: schema.TypeDouble, Collection: schema.CollectionMap},
			{Name: "pets", Type: schema.TypeObject, ObjectType: "Dog", Collection: schema.CollectionMap, Optional: true},
			{Name: "extra", Type: schema.TypeMixed},
			{Name: "extras", Type: schema.TypeMixed, Collection: schema.CollectionList},
		},
	}
	dog := &schema.Object{
		Name: "Dog",
		Properties: []schema.Property{
			{Name: "name", Type: schema.TypeString},
			{Name: "age", Type: schema.TypeInt},
			{Name: "owner", Type: schema.TypeObject, ObjectType: "Person", Optional: true},
			{Name: "toys", Type: schema.TypeObject, ObjectType: "Toy", Collection: schema.CollectionList},
		},
	}
	toy := &schema.Object{
		Name: "Toy",
		Properties: []schema.Property{
			{Name: "name", Type: schema.TypeString},
			{Name: "price", Type: schema.TypeDecimal},
		},
	}
	address := &schema.Object{
		Name:     "Address",
		Embedded: true,
		Properties: []schema.Property{
			{Name: "city", Type: schema.TypeString},
			{Name: "zip", Type: schema.TypeString, Optional: true},
			{Name: "country", Type: schema.TypeObject, ObjectType: "Country", Optional: true},
		},
	}
	country := &schema.Object{
		Name:       "Country",
		PrimaryKey: "code",
		Properties: []schema.Property{
			{Name: "code", Type: schema.TypeString},
			{Name: "name", Type: schema.TypeString},
		},
	}
	mood := &schema.Enum{
		Name:  "Mood",
		Raw:   schema.TypeString,
		Cases: []ir.Value{ir.String("happy"), ir.String("sad"), ir.String("calm")},
	}
	priority := &schema.Enum{
		Name:  "Priority",
		Raw:   schema.TypeInt,
		Cases: []ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)},
	}
	return schema.Must(schema.New(person, dog, toy, address, country).WithEnums(mood, priority))
}
