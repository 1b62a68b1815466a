package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

// timestampField renders a stored Timestamp as RFC 3339, or its raw text if
// it was never normalised.
func timestampField(get func(*domain.Appointment) domain.Timestamp) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			var ts domain.Timestamp
			switch a := p.Source.(type) {
			case domain.Appointment:
				ts = get(&a)
			case *domain.Appointment:
				ts = get(a)
			default:
				return nil, nil
			}
			if ts.Text != "" {
				return ts.Text, nil
			}
			if ts.Time.IsZero() {
				return nil, nil
			}
			return ts.Time.UTC().Format(time.RFC3339), nil
		},
	}
}

func rfc3339(get func(p graphql.ResolveParams) (time.Time, bool)) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			t, ok := get(p)
			if !ok || t.IsZero() {
				return nil, nil
			}
			return t.Format(time.RFC3339), nil
		},
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	areaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ServiceArea",
		Fields: graphql.Fields{
			"provider_id":   &graphql.Field{Type: graphql.String},
			"center":        &graphql.Field{Type: coordinateType},
			"radius_miles":  &graphql.Field{Type: graphql.Float},
			"radius_meters": &graphql.Field{Type: graphql.Float},
			"geohash":       &graphql.Field{Type: graphql.String},
			"updated_at": rfc3339(func(p graphql.ResolveParams) (time.Time, bool) {
				switch a := p.Source.(type) {
				case *domain.ServiceArea:
					return a.UpdatedAt, true
				case domain.ServiceArea:
					return a.UpdatedAt, true
				}
				return time.Time{}, false
			}),
		},
	})

	appointmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Appointment",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"user_id":         &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: coordinateType},
			"notes":           &graphql.Field{Type: graphql.String},
			"start_datetime":  timestampField(func(a *domain.Appointment) domain.Timestamp { return a.Start }),
			"finish_datetime": timestampField(func(a *domain.Appointment) domain.Timestamp { return a.Finish }),
		},
	})

	coverageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coverage",
		Fields: graphql.Fields{
			"covered":   &graphql.Field{Type: graphql.Boolean},
			"providers": &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	rangeTime := func(finish bool) func(p graphql.ResolveParams) (time.Time, bool) {
		return func(p graphql.ResolveParams) (time.Time, bool) {
			r, ok := p.Source.(domain.BufferedRange)
			if !ok {
				return time.Time{}, false
			}
			if finish {
				return r.Window.Finish, true
			}
			return r.Window.Start, true
		}
	}

	rangeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BufferedRange",
		Fields: graphql.Fields{
			"appointment_id": &graphql.Field{Type: graphql.String},
			"start":          rfc3339(rangeTime(false)),
			"finish":         rfc3339(rangeTime(true)),
			"travel_seconds": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, ok := p.Source.(domain.BufferedRange)
					if !ok {
						return nil, nil
					}
					return int(r.Travel / time.Second), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"coverage": &graphql.Field{
				Type:        coverageType,
				Description: "Providers whose service area covers a point",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					point := domain.Coordinate{
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
					}
					providers, err := deps.Areas.FindProvidersCovering(p.Context, point)
					if err != nil {
						return nil, err
					}
					if providers == nil {
						providers = []string{}
					}
					return coverageResponse{Covered: len(providers) > 0, Providers: providers}, nil
				},
			},
			"area": &graphql.Field{
				Type:        areaType,
				Description: "A provider's service area",
				Args: graphql.FieldConfigArgument{
					"provider_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Areas.GetArea(p.Context, p.Args["provider_id"].(string))
				},
			},
			"appointments": &graphql.Field{
				Type:        graphql.NewList(appointmentType),
				Description: "A user's appointments between two YYYY-MM-DD dates",
				Args: graphql.FieldConfigArgument{
					"user_id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"start_date": &graphql.ArgumentConfig{Type: graphql.String},
					"end_date":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					start, _ := p.Args["start_date"].(string)
					end, _ := p.Args["end_date"].(string)
					return deps.Appointments.GetAppointments(p.Context, p.Args["user_id"].(string), start, end)
				},
			},
			"bufferedRanges": &graphql.Field{
				Type:        graphql.NewList(rangeType),
				Description: "Appointments on a date widened by travel time to a location",
				Args: graphql.FieldConfigArgument{
					"user_id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					loc := domain.Coordinate{
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
					}
					return deps.Appointments.BufferedRangesForDate(p.Context,
						p.Args["user_id"].(string), p.Args["date"].(string), loc)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setArea": &graphql.Field{
				Type:        areaType,
				Description: "Write a provider's service area",
				Args: graphql.FieldConfigArgument{
					"provider_id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"latitude":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_miles": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.Coordinate{
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
					}
					return deps.Areas.SetArea(p.Context, p.Args["provider_id"].(string), center, p.Args["radius_miles"].(float64))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
