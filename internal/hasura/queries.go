package hasura

const getUserChats = `
query GetUserChats($user_id: uuid!) {
  chats(
    where: { user_id: { _eq: $user_id } }
    order_by: { created_at: desc }
  ) {
    id
    title
    created_at
  }
}`

const getChatMessages = `
query GetChatMessages($chat_id: uuid!) {
  messages(
    where: { chat_id: { _eq: $chat_id } }
    order_by: { created_at: asc }
  ) {
    id
    content
    sender
    created_at
  }
}`

const createChat = `
mutation CreateChat($title: String!, $user_id: uuid!) {
  insert_chats_one(object: { title: $title, user_id: $user_id }) {
    id
    title
    created_at
    user_id
  }
}`

const sendMessage = `
mutation SendMessage($chat_id: uuid!, $content: String!, $user_id: uuid!) {
  sendMessage(chat_id: $chat_id, content: $content, user_id: $user_id) {
    reply
  }
}`
