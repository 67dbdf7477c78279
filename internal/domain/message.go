package domain

// OutboundMessage 表示一封待投递的邮件。
//
// 交给 mailer.Sender 之后由其独占，网关不保留也不重试。
type OutboundMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}
