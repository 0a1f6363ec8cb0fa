package model

var Models = []interface{}{
	&User{},
}
