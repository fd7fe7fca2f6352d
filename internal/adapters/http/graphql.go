package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services. Struct
// fields resolve through their json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	restroomType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Restroom",
		Fields: graphql.Fields{
			"id":                  &graphql.Field{Type: graphql.String},
			"name":                &graphql.Field{Type: graphql.String},
			"address":             &graphql.Field{Type: graphql.String},
			"description":         &graphql.Field{Type: graphql.String},
			"rating":              &graphql.Field{Type: graphql.Float},
			"open_hours":          &graphql.Field{Type: graphql.String},
			"close_hours":         &graphql.Field{Type: graphql.String},
			"disability_friendly": &graphql.Field{Type: graphql.Boolean},
			"changing_station":    &graphql.Field{Type: graphql.Boolean},
			"saved":               &graphql.Field{Type: graphql.Boolean},
			"created_at":          &graphql.Field{Type: graphql.DateTime},
		},
	})

	pinType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pin",
		Fields: graphql.Fields{
			"record_id":   &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"coordinate":  &graphql.Field{Type: geoPointType},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"center":   &graphql.Field{Type: geoPointType},
			"span_lat": &graphql.Field{Type: graphql.Float},
			"span_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	liveLocationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LiveLocation",
		Fields: graphql.Fields{
			"coordinate": &graphql.Field{Type: geoPointType},
			"accuracy":   &graphql.Field{Type: graphql.Float},
			"timestamp":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteOverlay",
		Fields: graphql.Fields{
			"origin":      &graphql.Field{Type: geoPointType},
			"destination": &graphql.Field{Type: geoPointType},
			"mode":        &graphql.Field{Type: graphql.String},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"version":       &graphql.Field{Type: graphql.Int},
			"region":        &graphql.Field{Type: regionType},
			"pins":          &graphql.Field{Type: graphql.NewList(pinType)},
			"selected_pin":  &graphql.Field{Type: pinType},
			"live_location": &graphql.Field{Type: liveLocationType},
			"route_visible": &graphql.Field{Type: graphql.Boolean},
			"route":         &graphql.Field{Type: routeType},
			"loading":       &graphql.Field{Type: graphql.Boolean},
		},
	})

	advisoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Advisory",
		Fields: graphql.Fields{
			"title":   &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
			"time":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"state":      &graphql.Field{Type: mapViewType},
			"advisories": &graphql.Field{Type: graphql.NewList(advisoryType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"restrooms": &graphql.Field{
				Type:        graphql.NewList(restroomType),
				Description: "List all restroom records",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Restrooms.List(p.Context)
				},
			},
			"restroom": &graphql.Field{
				Type:        restroomType,
				Description: "Get a restroom by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Restrooms.Get(p.Context, p.Args["id"].(string))
				},
			},
			"pins": &graphql.Field{
				Type:        graphql.NewList(pinType),
				Description: "Geocode every record and return the resolvable ones",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Pins.Load(p.Context)
				},
			},
			"geocode": &graphql.Field{
				Type:        geoPointType,
				Description: "Resolve an address to a coordinate",
				Args: graphql.FieldConfigArgument{
					"address": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Search.Resolve(p.Context, p.Args["address"].(string))
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current view of an explore session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Sessions.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return s.View(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createRestroom": &graphql.Field{
				Type:        restroomType,
				Description: "Submit a new restroom",
				Args: graphql.FieldConfigArgument{
					"name":                &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"rating":              &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"open_hours":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"close_hours":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"address":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"disability_friendly": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"changing_station":    &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in := domain.NewRestroom{
						Name:               p.Args["name"].(string),
						Rating:             p.Args["rating"].(string),
						OpenHours:          p.Args["open_hours"].(string),
						CloseHours:         p.Args["close_hours"].(string),
						Address:            p.Args["address"].(string),
						Description:        p.Args["description"].(string),
						DisabilityFriendly: p.Args["disability_friendly"].(bool),
						ChangingStation:    p.Args["changing_station"].(bool),
					}
					return deps.Restrooms.Create(p.Context, in)
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
