package user

type credentials struct {
	Login    string `json:"login" minLength:"3" maxLength:"32" doc:"Логин игрока"`
	Password string `json:"password" minLength:"1" maxLength:"72" doc:"Пароль"`
}

type registerInput struct {
	Body credentials
}

type registerOutput struct {
	Body registerResponse
}

type registerResponse struct {
	ID     int    `json:"user_id"`
	Status string `json:"status"`
}

type loginInput struct {
	Body credentials
}

type loginOutput struct {
	Body loginResponse
}

type loginResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
}
