// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/orders": {
            "get": {"tags": ["orders"], "summary": "List orders, scoped to the caller for florists and delivery agents"},
            "post": {"tags": ["orders"], "summary": "Create an order"}
        },
        "/orders/{id}": {
            "get": {"tags": ["orders"], "summary": "Get an order"},
            "delete": {"tags": ["orders"], "summary": "Delete an order"}
        },
        "/orders/available": {"get": {"tags": ["orders"], "summary": "List unassigned orders ready for delivery"}},
        "/orders/user/{userId}": {"get": {"tags": ["orders"], "summary": "List a customer's orders"}},
        "/orders/florist/{floristId}": {"get": {"tags": ["orders"], "summary": "List a shop's orders"}},
        "/orders/deliver/{deliverId}": {"get": {"tags": ["orders"], "summary": "List a delivery agent's orders"}},
        "/orders/flower/{flowerId}": {"get": {"tags": ["orders"], "summary": "List orders containing a flower"}},
        "/orders/analytics/florist/{floristId}": {"get": {"tags": ["analytics"], "summary": "Shop sales report"}},
        "/orders/{id}/status": {"put": {"tags": ["orders"], "summary": "Change order status"}},
        "/orders/{id}/assign-deliver": {"put": {"tags": ["orders"], "summary": "Assign a delivery agent"}},
        "/orders/{id}/florist": {"put": {"tags": ["orders"], "summary": "Reassign the fulfilling shop"}},
        "/orders/{id}/items": {"post": {"tags": ["cart"], "summary": "Add a line item"}},
        "/orders/{id}/items/{flowerId}": {
            "patch": {"tags": ["cart"], "summary": "Update a line item"},
            "delete": {"tags": ["cart"], "summary": "Remove a line item"}
        },
        "/orders/fix/florist": {"get": {"tags": ["maintenance"], "summary": "List orders without a florist"}},
        "/orders/fix/add-florist-id": {"put": {"tags": ["maintenance"], "summary": "Backfill missing florists"}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Bloomcart Order Service API",
	Description:      "Orders, carts, fulfilment workflow and shop analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
