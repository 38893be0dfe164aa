package translator

import (
	"strconv"
	"strings"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

// OCI content and tool type names.
const (
	ociContentText  = "TEXT"
	ociContentImage = "IMAGE"
	ociToolFunction = "FUNCTION"
)

// ToUpstream converts an OpenAI chat request into the OCI chat request for target.
// It is pure: the same inputs always give the same request and adjustments.
func ToUpstream(req *models.ChatRequest, target models.Target, opts Options) (*models.UpstreamRequest, []ParamAdjustment, error) {
	if req == nil {
		return nil, nil, apperrors.InvalidRequest("request body is required")
	}
	if len(req.Messages) == 0 {
		return nil, nil, apperrors.InvalidParameter("messages", "messages must contain at least one message")
	}
	if n := req.Choices(); n < 1 || n > MaxChoices {
		return nil, nil, apperrors.InvalidParameter("n", "n must be between 1 and %d", MaxChoices)
	}

	cr := models.OCIChatRequest{
		APIFormat: target.APIFormat,
		IsStream:  req.Stream,
		Seed:      req.Seed,
	}
	if req.Stream && req.IncludeUsage() {
		cr.StreamOptions = &models.OCIStreamOptions{IsIncludeUsage: true}
	}

	var err error
	if target.APIFormat == models.APIFormatCohere {
		err = buildCohere(&cr, req)
	} else {
		err = buildGeneric(&cr, req)
	}
	if err != nil {
		return nil, nil, err
	}

	pm := newParamMapper(target.APIFormat, opts.StrictParams)
	if cr.Temperature, err = pm.float("temperature", req.Temperature); err != nil {
		return nil, nil, err
	}
	if cr.TopP, err = pm.float("top_p", req.TopP); err != nil {
		return nil, nil, err
	}
	if cr.TopP == nil {
		cr.TopP = pm.defaultTopP()
	}
	if cr.TopK, err = pm.int("top_k", req.TopK); err != nil {
		return nil, nil, err
	}
	if cr.FrequencyPenalty, err = pm.float("frequency_penalty", req.FrequencyPenalty); err != nil {
		return nil, nil, err
	}
	if cr.PresencePenalty, err = pm.float("presence_penalty", req.PresencePenalty); err != nil {
		return nil, nil, err
	}
	if cr.MaxTokens, err = pm.maxTokens(req, opts); err != nil {
		return nil, nil, err
	}

	return &models.UpstreamRequest{
		CompartmentID: opts.CompartmentID,
		ServingMode:   target.ServingMode,
		ChatRequest:   cr,
	}, pm.adjustments, nil
}

func buildGeneric(cr *models.OCIChatRequest, req *models.ChatRequest) error {
	msgs := make([]models.OCIMessage, 0, len(req.Messages))
	for i, m := range req.Messages {
		role, ok := genericRoles[strings.ToLower(m.Role)]
		if !ok {
			return apperrors.UnsupportedRole(m.Role, i)
		}
		content, err := genericContent(m.Content, i)
		if err != nil {
			return err
		}
		om := models.OCIMessage{Role: role, Content: content, Name: m.Name}
		switch role {
		case models.OCIRoleTool:
			if m.ToolCallID == "" {
				return apperrors.InvalidParameter(paramAt(i, "tool_call_id"), "tool messages require tool_call_id")
			}
			om.ToolCallID = m.ToolCallID
		case models.OCIRoleAssistant:
			for _, tc := range m.ToolCalls {
				om.ToolCalls = append(om.ToolCalls, models.OCIToolCall{
					ID:        tc.ID,
					Type:      ociToolFunction,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
		}
		msgs = append(msgs, om)
	}
	cr.Messages = msgs
	cr.Stop = append([]string(nil), req.Stop...)

	for _, t := range req.Tools {
		if t.Type != "" && t.Type != "function" {
			return apperrors.InvalidParameter("tools", "unsupported tool type %q", t.Type)
		}
		if t.Function.Name == "" {
			return apperrors.InvalidParameter("tools", "tool function name is required")
		}
		cr.Tools = append(cr.Tools, models.OCITool{
			Type:        ociToolFunction,
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	if req.ToolChoice != nil {
		tc, err := toolChoice(req.ToolChoice)
		if err != nil {
			return err
		}
		cr.ToolChoice = tc
	}
	return nil
}

func genericContent(c models.MessageContent, index int) ([]models.OCIContent, error) {
	if !c.IsParts {
		if c.Text == "" {
			return nil, nil
		}
		return []models.OCIContent{{Type: ociContentText, Text: c.Text}}, nil
	}
	out := make([]models.OCIContent, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch p.Type {
		case "text":
			out = append(out, models.OCIContent{Type: ociContentText, Text: p.Text})
		case "image_url":
			if p.ImageURL == nil || p.ImageURL.URL == "" {
				return nil, apperrors.InvalidParameter(paramAt(index, "content"), "image_url part requires a url")
			}
			out = append(out, models.OCIContent{
				Type:     ociContentImage,
				ImageURL: &models.OCIImageURL{URL: p.ImageURL.URL, Detail: p.ImageURL.Detail},
			})
		default:
			return nil, apperrors.InvalidRequest("messages[%d]: unsupported content part type %q", index, p.Type)
		}
	}
	return out, nil
}

func toolChoice(tc *models.ToolChoice) (*models.OCIToolChoice, error) {
	switch tc.Mode {
	case models.ToolChoiceNone:
		return &models.OCIToolChoice{Type: "NONE"}, nil
	case models.ToolChoiceAuto, "":
		return &models.OCIToolChoice{Type: "AUTO"}, nil
	case models.ToolChoiceRequired:
		return &models.OCIToolChoice{Type: "REQUIRED"}, nil
	case models.ToolChoiceFunction:
		if tc.Function == "" {
			return nil, apperrors.InvalidParameter("tool_choice", "tool_choice function name is required")
		}
		return &models.OCIToolChoice{Type: ociToolFunction, Name: tc.Function}, nil
	default:
		return nil, apperrors.InvalidParameter("tool_choice", "unsupported tool_choice %q", tc.Mode)
	}
}

// buildCohere folds the conversation into preamble, history and the final user message.
func buildCohere(cr *models.OCIChatRequest, req *models.ChatRequest) error {
	if len(req.Tools) > 0 || req.ToolChoice != nil {
		return apperrors.InvalidParameter("tools", "tools are not supported for COHERE models")
	}
	last := len(req.Messages) - 1
	var preamble []string
	for i, m := range req.Messages {
		role, ok := cohereRoles[strings.ToLower(m.Role)]
		if !ok {
			return apperrors.UnsupportedRole(m.Role, i)
		}
		text, err := cohereText(m.Content, i)
		if err != nil {
			return err
		}
		if i == last {
			if role != models.OCIRoleUser {
				return apperrors.InvalidParameter(paramAt(i, "role"), "the last message must be a user message for COHERE models")
			}
			cr.Message = text
			continue
		}
		if role == models.OCIRoleSystem {
			preamble = append(preamble, text)
			continue
		}
		cm := models.CohereMessage{Role: role, Message: text}
		if role == models.OCIRoleTool {
			if m.ToolCallID == "" {
				return apperrors.InvalidParameter(paramAt(i, "tool_call_id"), "tool messages require tool_call_id")
			}
			cm.ToolCallID = m.ToolCallID
		}
		cr.ChatHistory = append(cr.ChatHistory, cm)
	}
	cr.PreambleOverride = strings.Join(preamble, "\n")
	cr.StopSequences = append([]string(nil), req.Stop...)
	return nil
}

func cohereText(c models.MessageContent, index int) (string, error) {
	if !c.IsParts {
		return c.Text, nil
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type != "text" {
			return "", apperrors.InvalidRequest("messages[%d]: content part type %q is not supported for COHERE models", index, p.Type)
		}
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func paramAt(index int, field string) string {
	return "messages[" + strconv.Itoa(index) + "]." + field
}
