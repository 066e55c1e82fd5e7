package sqlinline

const QInsertGeneration = `--sql 5513e163-018b-4e95-b563-ee4fe8159df7
insert into generations (id, user_id, tone, messages, responses, tokens_used, model, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::jsonb, $4::jsonb, $5::int, $6::text, now())
returning id, created_at;
`

const QSelectGenerationForUser = `--sql f970a357-c0ce-4d9f-87ea-393bb9906cd1
select id, user_id, tone, messages, responses, coalesce(selected_response, ''), tokens_used, model, created_at
from generations
where id = $1::uuid and user_id = $2::uuid;
`

const QListGenerationsByUser = `--sql 311b9e61-49de-47fd-a98e-dd8d0222a05d
select id, tone, responses, coalesce(selected_response, ''), tokens_used, created_at
from generations
where user_id = $1::uuid
order by created_at desc
limit $2::int offset $3::int;
`

const QCountGenerationsByUser = `--sql f0e5e557-70f3-4600-8c22-e95f0c3d8ead
select count(*) from generations where user_id = $1::uuid;
`

const QSelectGenerationResponse = `--sql e9c116bc-fb51-46f9-967f-868c8e86b300
update generations
set selected_response = $3::text
where id = $1::uuid and user_id = $2::uuid;
`
