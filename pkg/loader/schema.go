package loader

// FlowSchema is the JSON schema for flow definitions
const FlowSchema = `
{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "start_task", "tasks"],
  "properties": {
    "id": {
      "type": "string",
      "minLength": 1
    },
    "name": {
      "type": "string"
    },
    "start_task": {
      "type": "string",
      "minLength": 1
    },
    "tasks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "task_type"],
        "properties": {
          "name": {
            "type": "string",
            "minLength": 1
          },
          "description": {
            "type": "string"
          },
          "task_type": {
            "type": "string",
            "minLength": 1
          },
          "parameters": {
            "type": "object"
          }
        }
      }
    },
    "conditions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source_task", "target_task_success", "target_task_failure"],
        "properties": {
          "name": {
            "type": "string"
          },
          "description": {
            "type": "string"
          },
          "source_task": {
            "type": "string",
            "minLength": 1
          },
          "outcome": {
            "type": "string",
            "enum": ["success", "failure"]
          },
          "target_task_success": {
            "type": "string"
          },
          "target_task_failure": {
            "type": "string"
          }
        }
      }
    }
  }
}
`
