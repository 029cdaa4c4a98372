// Package docs holds the swagger document of the REST API, served by gin-swagger.
// Regenerate with: swag init -g restapi/main/main.go -o restapi/docs --parseDependency
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
        "/model.json": {
            "get": {
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "description": "GetModel responds with a JSON Graph envelope holding every value found at the requested paths.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Model"
                ],
                "summary": "GetModel reads the values addressed by path-sets.",
                "parameters": [
                    {
                        "type": "string",
                        "default": "get",
                        "description": "Operation, only get is allowed",
                        "name": "method",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "JSON array of path-sets, e.g. [[\"byId\",[0,1],\"name\"]]",
                        "name": "paths",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/graphkv.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {}
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/graphkv.ErrorMarker"
                        }
                    }
                }
            },
            "post": {
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "description": "PostModel with method=set persists the jsonGraph envelope and responds with it, failed keys\nreplaced by write_fail error markers. method=call is not supported.",
                "consumes": [
                    "application/x-www-form-urlencoded"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Model"
                ],
                "summary": "PostModel writes values (method=set) or invokes a function (method=call).",
                "parameters": [
                    {
                        "type": "string",
                        "description": "set or call",
                        "name": "method",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "JSON envelope {\"jsonGraph\":{...},\"paths\":[...]}, for set",
                        "name": "jsonGraph",
                        "in": "formData"
                    },
                    {
                        "type": "string",
                        "description": "JSON path of the function, for call",
                        "name": "callPath",
                        "in": "formData"
                    },
                    {
                        "type": "string",
                        "description": "JSON array of arguments, for call",
                        "name": "arguments",
                        "in": "formData"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/graphkv.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {}
                        }
                    },
                    "501": {
                        "description": "Not Implemented",
                        "schema": {
                            "$ref": "#/definitions/graphkv.ErrorMarker"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "graphkv.Envelope": {
            "type": "object",
            "properties": {
                "jsonGraph": {
                    "type": "object",
                    "additionalProperties": {}
                },
                "paths": {
                    "type": "array",
                    "items": {
                        "type": "array",
                        "items": {}
                    }
                }
            }
        },
        "graphkv.Error": {
            "type": "object",
            "properties": {
                "detail": {
                    "type": "string"
                },
                "key": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "graphkv.ErrorMarker": {
            "type": "object",
            "properties": {
                "$type": {
                    "type": "string"
                },
                "value": {
                    "$ref": "#/definitions/graphkv.Error"
                }
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "graphkv JSON Graph API",
	Description:      "Serves JSON Graph get, set and call requests out of a flat key/value store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
