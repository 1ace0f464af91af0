package config

// Schema is the JSON Schema configuration files are checked against after
// decoding. Keys are lower case because viper folds them.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "telegram": {
      "type": "object",
      "properties": {
        "enabled": { "type": "boolean" },
        "bot_token": { "type": "string" },
        "allowlist": { "type": "array", "items": { "type": "integer" } },
        "timeout": { "type": "integer", "minimum": 0 }
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": { "type": "string", "enum": ["debug", "info", "warn", "error"] },
        "file": { "type": "string" },
        "pretty": { "type": "boolean" },
        "redaction": { "type": "boolean" },
        "audit_file": { "type": "string" }
      }
    },
    "metrics": {
      "type": "object",
      "properties": {
        "addr": { "type": "string" },
        "path": { "type": "string" }
      }
    },
    "config_dir": { "type": "string" },
    "data_dir": { "type": "string" },
    "sponsors": {
      "type": "object",
      "properties": {
        "google_api_keyfile": { "type": "string" },
        "sponsors_sheet_key": { "type": "string", "minLength": 1 },
        "sponsors_sheet_tab": { "type": "string" },
        "sponsors_source": { "type": "string", "enum": ["sheets", "xlsx"] },
        "info_columns": { "type": "array", "items": { "type": "string" } },
        "contracts_dir": { "type": "string", "minLength": 1 },
        "template_file": {
          "oneOf": [
            { "type": "string" },
            { "type": "object", "additionalProperties": { "type": "string" } }
          ]
        },
        "latex_engine": { "type": "string" }
      }
    }
  }
}`
