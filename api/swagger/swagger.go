package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Backoffice Authorization API",
        "description": "Dual-control authorization workflow for sensitive back-office mutations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Authentication", "description": "Operator sessions"},
        {"name": "Permissions", "description": "Profile resolution and the action catalogue"},
        {"name": "Mutations", "description": "Direct or dual-controlled record changes"},
        {"name": "Authorizations", "description": "Authorization request lifecycle"},
        {"name": "Deliveries", "description": "Server-side delivery loops"},
        {"name": "Documents", "description": "Records the catalogued actions operate on"},
        {"name": "Operators", "description": "Operator accounts and profile assignments"},
        {"name": "Audit", "description": "Workflow audit trail"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Open an operator session",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current operator",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/permissions/resolve": {
            "get": {
                "tags": ["Permissions"],
                "summary": "Resolve profiles",
                "parameters": [
                    {"name": "profile", "in": "query", "required": true, "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "No profile given", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/permissions/me": {
            "get": {
                "tags": ["Permissions"],
                "summary": "Current operator grants",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/permissions/actions": {
            "get": {
                "tags": ["Permissions"],
                "summary": "Catalogued actions with the caller's verdict",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mutations": {
            "post": {
                "tags": ["Mutations"],
                "summary": "Apply or request a mutation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MutationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied directly", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Awaiting approval", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Denied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Identical request pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No changes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{collection}": {
            "get": {
                "tags": ["Documents"],
                "summary": "List a collection's records",
                "parameters": [
                    {"name": "collection", "in": "path", "required": true, "type": "string"},
                    {"name": "match", "in": "query", "type": "string", "description": "JSON object the record body must contain"},
                    {"name": "tenantId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown collection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/operators": {
            "get": {
                "tags": ["Operators"],
                "summary": "List a tenant's operators with resolved grants",
                "parameters": [
                    {"name": "tenantId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Operators"],
                "summary": "Provision an operator account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOperatorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/operators/{id}/grants": {
            "put": {
                "tags": ["Operators"],
                "summary": "Replace an operator's profiles and explicit grants",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateGrantsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "Latest audit entries of a tenant",
                "parameters": [
                    {"name": "tenantId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Audit"],
                "summary": "Workflow counters snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/authorizations": {
            "get": {
                "tags": ["Authorizations"],
                "summary": "List pending requests",
                "parameters": [
                    {"name": "tenantId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Authorizations"],
                "summary": "File an authorization request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAuthorizationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Identical request pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/authorizations/mine": {
            "get": {
                "tags": ["Authorizations"],
                "summary": "The caller's pending and approved requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/authorizations/{id}": {
            "get": {
                "tags": ["Authorizations"],
                "summary": "Request with decoded descriptor and narrative",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/authorizations/{id}/approve": {
            "post": {
                "tags": ["Authorizations"],
                "summary": "Approve with the approver's own credentials",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveAuthorizationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Approval credentials rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/authorizations/{id}/deny": {
            "post": {
                "tags": ["Authorizations"],
                "summary": "Deny with the approver's own credentials",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveAuthorizationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Approval credentials rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/authorizations/{id}/processed": {
            "post": {
                "tags": ["Authorizations"],
                "summary": "Mark an approved request as applied",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the requester or not approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/deliveries": {
            "get": {
                "tags": ["Deliveries"],
                "summary": "Delivery loop status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Deliveries"],
                "summary": "Start the caller's delivery loop",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Deliveries"],
                "summary": "Stop the caller's delivery loop",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/deliveries/trigger": {
            "post": {
                "tags": ["Deliveries"],
                "summary": "Run the caller's delivery loop now",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No loop attached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "MutationRequest": {
            "type": "object",
            "required": ["actionKey"],
            "properties": {
                "actionKey": {"type": "string"},
                "recordId": {"type": "string"},
                "changes": {"type": "object"},
                "detail": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "SubmitAuthorizationRequest": {
            "type": "object",
            "required": ["actionKey", "actionLabel"],
            "properties": {
                "tenantId": {"type": "string"},
                "actionKey": {"type": "string"},
                "actionLabel": {"type": "string"}
            }
        },
        "ResolveAuthorizationRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateOperatorRequest": {
            "type": "object",
            "required": ["email", "fullName", "password", "role", "profiles"],
            "properties": {
                "tenantId": {"type": "string"},
                "email": {"type": "string"},
                "fullName": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["SUPER_ADMIN", "COMPANY_ADMIN", "STAFF"]},
                "profiles": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UpdateGrantsRequest": {
            "type": "object",
            "required": ["profiles"],
            "properties": {
                "profiles": {"type": "array", "items": {"type": "string"}},
                "permissions": {"type": "array", "items": {"type": "string"}},
                "remoteAuthorizations": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
