// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"

	"github.com/foundriesio/apps-upgrader/context"
)

const larkMessagesPath = "/open-apis/im/v1/messages"

type larkDoFunc func(ctx context.Context, req *larkcore.ApiReq, options ...larkcore.RequestOptionFunc) (*larkcore.ApiResp, error)

// larkChannel sends a text message to a Lark or Feishu group chat as a
// self-built app bot.
type larkChannel struct {
	name   string
	chatId string
	do     larkDoFunc
}

func newLarkChannel(u *url.URL) (*larkChannel, error) {
	appId := u.User.Username()
	appSecret, _ := u.User.Password()
	chatId := u.Host
	if appId == "" || appSecret == "" || chatId == "" {
		return nil, fmt.Errorf("%s notification url must look like %s://app_id:app_secret@chat_id", u.Scheme, u.Scheme)
	}

	baseUrl := lark.FeishuBaseUrl
	if strings.EqualFold(u.Scheme, "lark") {
		baseUrl = lark.LarkBaseUrl
	}
	if domain := u.Query().Get("domain"); domain != "" {
		baseUrl = strings.TrimRight(domain, "/")
	}

	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelError),
		lark.WithOpenBaseUrl(baseUrl),
	}
	client := lark.NewClient(appId, appSecret, opts...)
	return &larkChannel{
		name:   fmt.Sprintf("%s://%s@%s", strings.ToLower(u.Scheme), appId, chatId),
		chatId: chatId,
		do:     client.Do,
	}, nil
}

func (c *larkChannel) Name() string {
	return c.name
}

func (c *larkChannel) Send(ctx context.Context, msg Message) error {
	content, err := json.Marshal(map[string]string{"text": msg.Title + "\n" + msg.Body})
	if err != nil {
		return fmt.Errorf("lark: encode message: %w", err)
	}
	req := &larkcore.ApiReq{
		HttpMethod:  http.MethodPost,
		ApiPath:     larkMessagesPath,
		QueryParams: larkcore.QueryParams{"receive_id_type": []string{"chat_id"}},
		Body: map[string]string{
			"receive_id": c.chatId,
			"msg_type":   "text",
			"content":    string(content),
		},
		SupportedAccessTokenTypes: []larkcore.AccessTokenType{larkcore.AccessTokenTypeTenant},
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("lark: send message: %w", err)
	}
	if resp == nil {
		return errors.New("lark: empty response when sending message")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("lark: http %d response: %s", resp.StatusCode, strings.TrimSpace(string(resp.RawBody)))
	}

	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(resp.RawBody, &parsed); err != nil {
		return fmt.Errorf("lark: decode response: %w", err)
	}
	if parsed.Code != 0 {
		return fmt.Errorf("lark: send message failed code=%d msg=%s", parsed.Code, parsed.Msg)
	}
	return nil
}
