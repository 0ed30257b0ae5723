package schema

// Declared shapes per form type. Paths here line up with the mapping tables
// in internal/mapping/tables; a key added to a table usually needs a
// matching property here so intake output can carry it.

func str() *Property                { return &Property{Kind: KindString} }
func boolean() *Property            { return &Property{Kind: KindBool} }
func enum(vals ...string) *Property { return &Property{Kind: KindString, Enum: vals} }
func object(props map[string]*Property) *Property {
	return &Property{Kind: KindObject, Properties: props}
}
func arrayOf(item *Property) *Property {
	return &Property{Kind: KindArray, Items: item}
}

func usAddress() *Property {
	return object(map[string]*Property{
		"line1": str(),
		"line2": str(),
		"city":  str(),
		"state": str(),
		"zip":   str(),
	})
}

func person() *Property {
	return object(map[string]*Property{
		"aNumber":     str(),
		"familyName":  str(),
		"givenName":   str(),
		"middleName":  str(),
		"dob":         str(),
		"pobCity":     str(),
		"pobCountry":  str(),
		"citizenship": str(),
		"sex":         enum("M", "F", "X"),
	})
}

var shapes = map[string]*Shape{
	"I589": {
		Form: "I589",
		Properties: map[string]*Property{
			"identifiers": object(map[string]*Property{
				"firstName":  str(),
				"lastName":   str(),
				"middleName": str(),
				"aNumber":    str(),
			}),
			"bio": object(map[string]*Property{
				"dob":           str(),
				"pobCity":       str(),
				"pobCountry":    str(),
				"citizenship":   str(),
				"sex":           enum("M", "F", "X"),
				"maritalStatus": enum("Single", "Married", "Divorced", "Widowed"),
			}),
			"usAddress": usAddress(),
			"arrival": object(map[string]*Property{
				"date":   str(),
				"place":  str(),
				"manner": str(),
				"i94":    str(),
			}),
			"defensive": boolean(),
			"narrative": str(),
			"spouse": object(map[string]*Property{
				"included":   boolean(),
				"familyName": str(),
				"givenName":  str(),
				"dob":        str(),
			}),
			"dependents": arrayOf(object(map[string]*Property{
				"familyName": str(),
				"givenName":  str(),
				"dob":        str(),
			})),
		},
	},
	"I765": {
		Form: "I765",
		Properties: map[string]*Property{
			"category":     enum("c8"),
			"applicant":    person(),
			"usAddress":    usAddress(),
			"ssnRequested": boolean(),
		},
	},
}
