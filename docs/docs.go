// Package docs registers the OpenAPI document served under /swagger.
//
// The Connect procedures are plain POST endpoints with JSON bodies, so they
// are described here as ordinary operations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/splitsettle.v1.SplitService/CreateSplit": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["splits"],
                "summary": "Create a split",
                "description": "Computes shares for a new split. A group split with no participants starts from the group roster.",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.CreateSplitRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SplitView"}}}
            }
        },
        "/splitsettle.v1.SplitService/GetSplit": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["splits"],
                "summary": "Get the reconciled view of a split",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.SplitIDRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SplitView"}}}
            }
        },
        "/splitsettle.v1.SplitService/RecordPayment": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["splits"],
                "summary": "Append a payment to the ledger",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.RecordPaymentRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SplitView"}}}
            }
        },
        "/splitsettle.v1.SplitService/SetPaidFor": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["splits"],
                "summary": "Redirect an entry's surplus to another entry",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.SetPaidForRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SplitView"}}}
            }
        },
        "/splitsettle.v1.SplitService/NudgeUnpaid": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["splits"],
                "summary": "Queue reminder emails for unpaid participants",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.SplitIDRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.NudgeUnpaidResponse"}}}
            }
        },
        "/splitsettle.v1.GroupService/AddMember": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Add a late joiner and reconcile the group's open splits",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.AddMemberRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.AddMemberResponse"}}}
            }
        },
        "/splitsettle.v1.GroupService/GetGroupBalances": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Net balances and suggested transfers across a group's splits",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.GetGroupBalancesRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.GetGroupBalancesResponse"}}}
            }
        }
    },
    "definitions": {
        "api.SplitIDRequest": {
            "type": "object",
            "properties": {"splitId": {"type": "string"}}
        },
        "api.Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "participantId": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "amount": {"type": "number", "example": 30},
                "percentage": {"type": "number"},
                "customAmount": {"type": "number"},
                "amountPaid": {"type": "number"},
                "paymentStatus": {"type": "string", "enum": ["unpaid", "partial", "paid"]},
                "paidForId": {"type": "string"},
                "surplusReceived": {"type": "number"},
                "surplusFrom": {"type": "array", "items": {"type": "string"}},
                "surplusForwarded": {"type": "number"},
                "paidTo": {"type": "string"}
            }
        },
        "api.Allocation": {
            "type": "object",
            "properties": {
                "paidFor": {"type": "string"},
                "paidForName": {"type": "string"},
                "paidForEmail": {"type": "string"},
                "amount": {"type": "number"}
            }
        },
        "api.Payment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "amount": {"type": "number"},
                "paidBy": {
                    "type": "object",
                    "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "email": {"type": "string"}}
                },
                "allocations": {"type": "array", "items": {"$ref": "#/definitions/api.Allocation"}},
                "note": {"type": "string"},
                "createdAt": {"type": "integer"}
            }
        },
        "api.Split": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "groupId": {"type": "string"},
                "title": {"type": "string"},
                "totalAmount": {"type": "number"},
                "subtotal": {"type": "number"},
                "splitType": {"type": "string", "enum": ["equal", "percentage", "custom", "item_based"]},
                "status": {"type": "string", "enum": ["pending", "calculated", "finalized", "cancelled"]},
                "breakdown": {"type": "array", "items": {"$ref": "#/definitions/api.Entry"}},
                "payments": {"type": "array", "items": {"$ref": "#/definitions/api.Payment"}},
                "version": {"type": "integer"},
                "createdBy": {"type": "string"},
                "createdAt": {"type": "integer"},
                "updatedAt": {"type": "integer"}
            }
        },
        "api.SplitView": {
            "type": "object",
            "properties": {
                "split": {"$ref": "#/definitions/api.Split"},
                "unresolved": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"paymentId": {"type": "string"}, "key": {"type": "string"}, "amount": {"type": "number"}}
                    }
                },
                "joined": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.CreateSplitRequest": {
            "type": "object",
            "properties": {
                "groupId": {"type": "string"},
                "title": {"type": "string"},
                "totalAmount": {"type": "number"},
                "subtotal": {"type": "number"},
                "splitType": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/api.Entry"}}
            }
        },
        "api.RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "splitId": {"type": "string"},
                "payment": {"$ref": "#/definitions/api.Payment"}
            }
        },
        "api.SetPaidForRequest": {
            "type": "object",
            "properties": {
                "splitId": {"type": "string"},
                "entryId": {"type": "string"},
                "targetId": {"type": "string"}
            }
        },
        "api.NudgeUnpaidResponse": {
            "type": "object",
            "properties": {"notified": {"type": "integer"}}
        },
        "api.Member": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "joinedAt": {"type": "integer"}
            }
        },
        "api.AddMemberRequest": {
            "type": "object",
            "properties": {
                "groupId": {"type": "string"},
                "member": {"$ref": "#/definitions/api.Member"}
            }
        },
        "api.AddMemberResponse": {
            "type": "object",
            "properties": {
                "group": {
                    "type": "object",
                    "properties": {
                        "id": {"type": "string"},
                        "name": {"type": "string"},
                        "temporary": {"type": "boolean"},
                        "members": {"type": "array", "items": {"$ref": "#/definitions/api.Member"}},
                        "createdAt": {"type": "integer"}
                    }
                },
                "reconciled": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.GetGroupBalancesRequest": {
            "type": "object",
            "properties": {"groupId": {"type": "string"}}
        },
        "api.GetGroupBalancesResponse": {
            "type": "object",
            "properties": {
                "balances": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "key": {"type": "string"},
                            "name": {"type": "string"},
                            "netBalance": {"type": "number"},
                            "totalPaid": {"type": "number"},
                            "totalOwed": {"type": "number"}
                        }
                    }
                },
                "transfers": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "from": {"type": "string"},
                            "fromName": {"type": "string"},
                            "to": {"type": "string"},
                            "toName": {"type": "string"},
                            "amount": {"type": "number"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "splitsettle API",
	Description:      "Split-bill settlement engine. RPCs are Connect procedures that accept JSON bodies.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
